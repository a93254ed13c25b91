// Package management binds the device code resource of the identity management API
package management

import (
	"context"
	"encoding/json"

	"github.com/wrale/devicecode/pkg/rest"
)

// Endpoint paths relative to the API base URL
const (
	deviceVerifyPath   = "/device/verify"
	deviceActivatePath = "/device/activate"
)

// Options configures a manager. See rest.Options.
type Options = rest.Options

// VerifyRequest is a typed body for Verify
type VerifyRequest struct {
	UserCode string `json:"user_code"`
}

// ActivateParams is a typed body for Activate
type ActivateParams struct {
	UserCode     string `json:"user_code"`
	SubjectToken string `json:"subject_token"`
}

// DeviceCodeManager verifies and activates device codes
type DeviceCodeManager struct {
	verifyDevice   *rest.Resource
	activateDevice *rest.Resource
}

// NewDeviceCodeManager validates opts and creates a manager. It never
// touches the network.
func NewDeviceCodeManager(opts *Options) (*DeviceCodeManager, error) {
	client, err := rest.New(opts)
	if err != nil {
		return nil, err
	}
	return newDeviceCodeManager(client), nil
}

func newDeviceCodeManager(client *rest.Client) *DeviceCodeManager {
	return &DeviceCodeManager{
		verifyDevice:   client.Resource(deviceVerifyPath),
		activateDevice: client.Resource(deviceActivatePath),
	}
}

// Verify checks a device code. data is sent as the JSON body and the
// response body is returned unchanged.
func (m *DeviceCodeManager) Verify(ctx context.Context, data any) (json.RawMessage, error) {
	return m.verifyDevice.Create(ctx, data)
}

// VerifyAsync is Verify returning a promise
func (m *DeviceCodeManager) VerifyAsync(ctx context.Context, data any) *rest.Promise {
	return m.verifyDevice.CreateAsync(ctx, data)
}

// VerifyWithCallback is Verify reporting to cb
func (m *DeviceCodeManager) VerifyWithCallback(ctx context.Context, data any, cb rest.Callback) {
	m.verifyDevice.CreateWithCallback(ctx, data, cb)
}

// Activate approves a device code for token exchange. A 204 response
// yields a nil body.
//
//	params := management.ActivateParams{UserCode: "BDFG-HJKL", SubjectToken: accessToken}
//	_, err := m.Activate(ctx, params)
func (m *DeviceCodeManager) Activate(ctx context.Context, params any) (json.RawMessage, error) {
	return m.activateDevice.Create(ctx, params)
}

// ActivateAsync is Activate returning a promise
func (m *DeviceCodeManager) ActivateAsync(ctx context.Context, params any) *rest.Promise {
	return m.activateDevice.CreateAsync(ctx, params)
}

// ActivateWithCallback is Activate reporting to cb
func (m *DeviceCodeManager) ActivateWithCallback(ctx context.Context, params any, cb rest.Callback) {
	m.activateDevice.CreateWithCallback(ctx, params, cb)
}
