package management

import "github.com/wrale/devicecode/pkg/rest"

// ManagementClient groups the resource managers sharing one set of options
type ManagementClient struct {
	DeviceCode *DeviceCodeManager
}

// NewManagementClient validates opts once and builds every manager from them
func NewManagementClient(opts *Options) (*ManagementClient, error) {
	client, err := rest.New(opts)
	if err != nil {
		return nil, err
	}

	return &ManagementClient{
		DeviceCode: newDeviceCodeManager(client),
	}, nil
}
