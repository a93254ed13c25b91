package management

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/devicecode/internal/apitest"
	"github.com/wrale/devicecode/pkg/rest"
)

const testToken = "TOKEN"

// deviceCall runs one manager operation in its blocking, promise or
// callback form
type deviceCall struct {
	name string
	path string
	sync func(m *DeviceCodeManager, ctx context.Context, data any) (json.RawMessage, error)
	prom func(m *DeviceCodeManager, ctx context.Context, data any) *rest.Promise
	cb   func(m *DeviceCodeManager, ctx context.Context, data any, cb rest.Callback)
}

var deviceCalls = []deviceCall{
	{
		name: "verify",
		path: apitest.VerifyPath,
		sync: (*DeviceCodeManager).Verify,
		prom: (*DeviceCodeManager).VerifyAsync,
		cb:   (*DeviceCodeManager).VerifyWithCallback,
	},
	{
		name: "activate",
		path: apitest.ActivatePath,
		sync: (*DeviceCodeManager).Activate,
		prom: (*DeviceCodeManager).ActivateAsync,
		cb:   (*DeviceCodeManager).ActivateWithCallback,
	},
}

func newTestManager(t *testing.T, srv *apitest.Server) *DeviceCodeManager {
	t.Helper()

	m, err := NewDeviceCodeManager(&Options{
		BaseURL: srv.URL,
		Headers: map[string]string{"Authorization": "Bearer " + testToken},
	})
	require.NoError(t, err)
	return m
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewDeviceCodeManager(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Options
		wantErr error
	}{
		{name: "no options", opts: nil, wantErr: rest.ErrMissingOptions},
		{name: "no base URL", opts: &Options{}, wantErr: rest.ErrMissingBaseURL},
		{name: "invalid base URL", opts: &Options{BaseURL: " "}, wantErr: rest.ErrInvalidBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewDeviceCodeManager(tt.opts)
			require.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, rest.ErrConfig)
			assert.Nil(t, m)
		})
	}
}

func TestDeviceCodeSuccess(t *testing.T) {
	data := ActivateParams{UserCode: "BDFG-HJKL", SubjectToken: "some.access.token"}

	for _, call := range deviceCalls {
		t.Run(call.name, func(t *testing.T) {
			srv := apitest.NewServer(t, "")
			srv.Reply(call.path, http.StatusOK, `[{"test":true}]`)
			m := newTestManager(t, srv)

			body, err := call.sync(m, testContext(t), data)
			require.NoError(t, err)

			var got []map[string]bool
			require.NoError(t, json.Unmarshal(body, &got))
			if diff := cmp.Diff([]map[string]bool{{"test": true}}, got); diff != "" {
				t.Errorf("response body mismatch (-want +got):\n%s", diff)
			}

			reqs := srv.Requests()
			require.Len(t, reqs, 1)
			assert.Equal(t, http.MethodPost, reqs[0].Method)
			assert.Equal(t, call.path, reqs[0].Path)
			assert.Equal(t, "Bearer "+testToken, reqs[0].Header.Get("Authorization"))
			assert.JSONEq(t, `{"user_code":"BDFG-HJKL","subject_token":"some.access.token"}`, string(reqs[0].Body))
		})
	}
}

func TestDeviceCodeNoContent(t *testing.T) {
	for _, call := range deviceCalls {
		t.Run(call.name, func(t *testing.T) {
			srv := apitest.NewServer(t, "")
			srv.Reply(call.path, http.StatusNoContent, "")
			m := newTestManager(t, srv)

			body, err := call.sync(m, testContext(t), VerifyRequest{UserCode: "BDFG-HJKL"})
			require.NoError(t, err)
			assert.Nil(t, body)
		})
	}
}

func TestDeviceCodeServerError(t *testing.T) {
	for _, call := range deviceCalls {
		t.Run(call.name, func(t *testing.T) {
			srv := apitest.NewServer(t, "")
			srv.Reply(call.path, http.StatusInternalServerError, "")
			m := newTestManager(t, srv)

			_, err := call.sync(m, testContext(t), nil)

			var reqErr *rest.RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
			assert.Len(t, srv.Requests(), 1)
		})
	}
}

func TestDeviceCodePromise(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "resolves", status: http.StatusOK},
		{name: "rejects", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, call := range deviceCalls {
		for _, tt := range tests {
			t.Run(call.name+" "+tt.name, func(t *testing.T) {
				srv := apitest.NewServer(t, "")
				srv.Reply(call.path, tt.status, "")
				m := newTestManager(t, srv)

				ctx := testContext(t)
				promise := call.prom(m, ctx, VerifyRequest{UserCode: "BDFG-HJKL"})
				require.NotNil(t, promise)

				_, err := promise.Await(ctx)
				if tt.wantErr {
					assert.ErrorIs(t, err, rest.ErrRequest)
				} else {
					assert.NoError(t, err)
				}

				select {
				case <-promise.Done():
				default:
					t.Error("promise should be settled after Await")
				}
			})
		}
	}
}

func TestDeviceCodeCallback(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "success", status: http.StatusNoContent},
		{name: "error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, call := range deviceCalls {
		for _, tt := range tests {
			t.Run(call.name+" "+tt.name, func(t *testing.T) {
				srv := apitest.NewServer(t, "")
				srv.Reply(call.path, tt.status, "")
				m := newTestManager(t, srv)

				done := make(chan error, 1)
				call.cb(m, testContext(t), VerifyRequest{UserCode: "BDFG-HJKL"}, func(_ json.RawMessage, err error) {
					done <- err
				})

				select {
				case err := <-done:
					if tt.wantErr {
						assert.Error(t, err)
					} else {
						assert.NoError(t, err)
					}
				case <-time.After(5 * time.Second):
					t.Fatal("callback was not invoked")
				}
				assert.Len(t, srv.Requests(), 1)
			})
		}
	}
}

func TestManagementClientBasePath(t *testing.T) {
	srv := apitest.NewServer(t, "/api/v2")

	client, err := NewManagementClient(&Options{BaseURL: srv.URL + "/api/v2/"})
	require.NoError(t, err)

	_, err = client.DeviceCode.Verify(testContext(t), VerifyRequest{UserCode: "BDFG-HJKL"})
	require.NoError(t, err)
	_, err = client.DeviceCode.Activate(testContext(t), ActivateParams{UserCode: "BDFG-HJKL"})
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/v2"+apitest.VerifyPath, reqs[0].Path)
	assert.Equal(t, "/api/v2"+apitest.ActivatePath, reqs[1].Path)
}

func TestNewManagementClientConfigError(t *testing.T) {
	client, err := NewManagementClient(nil)
	require.ErrorIs(t, err, rest.ErrMissingOptions)
	assert.Nil(t, client)
}
