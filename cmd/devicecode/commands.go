package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wrale/devicecode/internal/usercode"
	"github.com/wrale/devicecode/pkg/management"
	"github.com/wrale/devicecode/pkg/rest"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "devicecode",
		Short: "Verify and activate device user codes through the management API",
		Long: `devicecode calls the device code endpoints of the management API.

Configuration is read from DEVICECODE_* environment variables. Either
DEVICECODE_TOKEN or DEVICECODE_CLIENT_ID and DEVICECODE_CLIENT_SECRET
must be set together with DEVICECODE_BASE_URL.`,
		Version:      Version,
		SilenceUsage: true,
	}

	root.AddCommand(newVerifyCommand(), newActivateCommand())
	return root
}

// bodyFlags are the request body options shared by both commands
type bodyFlags struct {
	data         string
	userCode     string
	subjectToken string
}

func (f *bodyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "", "raw JSON request body, or - to read it from stdin")
	cmd.Flags().StringVar(&f.userCode, "user-code", "", "user code shown on the device, e.g. BDFG-HJKL")
	cmd.MarkFlagsMutuallyExclusive("data", "user-code")
}

func newVerifyCommand() *cobra.Command {
	var flags bodyFlags

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a device user code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := flags.verifyBody(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, m *management.DeviceCodeManager) (json.RawMessage, error) {
				return m.Verify(ctx, body)
			})
		},
	}
	flags.register(cmd)

	return cmd
}

func newActivateCommand() *cobra.Command {
	var flags bodyFlags

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Approve a device user code on behalf of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := flags.activateBody(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, m *management.DeviceCodeManager) (json.RawMessage, error) {
				return m.Activate(ctx, body)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.subjectToken, "subject-token", "", "access token of the approving user")
	cmd.MarkFlagsMutuallyExclusive("data", "subject-token")

	return cmd
}

// verifyBody returns nil when no body option was given
func (f *bodyFlags) verifyBody(stdin io.Reader) (any, error) {
	if f.data != "" {
		return readData(f.data, stdin)
	}
	if f.userCode == "" {
		return nil, nil
	}

	code, err := usercode.Parse(f.userCode)
	if err != nil {
		return nil, err
	}
	return management.VerifyRequest{UserCode: code}, nil
}

func (f *bodyFlags) activateBody(stdin io.Reader) (any, error) {
	if f.data != "" {
		return readData(f.data, stdin)
	}
	if f.userCode == "" || f.subjectToken == "" {
		return nil, errors.New("activate needs --data or both --user-code and --subject-token")
	}

	code, err := usercode.Parse(f.userCode)
	if err != nil {
		return nil, err
	}
	return management.ActivateParams{UserCode: code, SubjectToken: f.subjectToken}, nil
}

// readData takes the body from the flag value, or from stdin for "-"
func readData(value string, stdin io.Reader) (json.RawMessage, error) {
	raw := []byte(value)
	if value == "-" {
		var err error
		if raw, err = io.ReadAll(stdin); err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
	}

	trimmed := strings.TrimSpace(string(raw))
	if !json.Valid([]byte(trimmed)) {
		return nil, errors.New("request body is not valid JSON")
	}
	return json.RawMessage(trimmed), nil
}

// run builds the app from the environment, performs call and prints the
// response body
func run(cmd *cobra.Command, call func(context.Context, *management.DeviceCodeManager) (json.RawMessage, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	body, err := call(ctx, a.manager)
	if err != nil {
		var reqErr *rest.RequestError
		if errors.As(err, &reqErr) {
			a.logger.Debug("request failed",
				zap.Int("status", reqErr.StatusCode),
				zap.String("code", reqErr.Code),
				zap.ByteString("body", reqErr.Body))
		}
		return err
	}

	if len(body) > 0 {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(body)); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	return nil
}
