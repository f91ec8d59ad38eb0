package transport

import (
	"encoding/hex"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/rchanrussell/go-looper/internal/errors"
)

// DeviceInfo describes one audio device for the devices command.
type DeviceInfo struct {
	Index     int
	Name      string
	ID        string
	IsDefault bool
}

// EnumerateDevices lists the capture devices of the platform backend.
func EnumerateDevices() ([]DeviceInfo, error) {
	backend, err := backendForPlatform()
	if err != nil {
		return nil, err
	}

	mctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("transport").
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_context").
			Build()
	}
	defer func() { _ = mctx.Uninit() }()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("transport").
			Category(errors.CategoryAudioDevice).
			Context("operation", "enumerate_devices").
			Build()
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		if strings.Contains(infos[i].Name(), "Discard all samples") {
			continue
		}
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			decodedID = infos[i].ID.String()
		}
		devices = append(devices, DeviceInfo{
			Index:     i,
			Name:      infos[i].Name(),
			ID:        decodedID,
			IsDefault: infos[i].IsDefault == 1,
		})
	}

	return devices, nil
}

// findDevice resolves a device name to the backend's device info, by
// exact name, decoded ID, then partial name.
func findDevice(mctx *malgo.AllocatedContext, name string) (*malgo.DeviceInfo, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("transport").
			Category(errors.CategoryAudioDevice).
			Context("operation", "enumerate_devices").
			Build()
	}

	for i := range infos {
		if infos[i].Name() == name {
			return &infos[i], nil
		}
	}
	for i := range infos {
		if decoded, err := hexToASCII(infos[i].ID.String()); err == nil && decoded == name {
			return &infos[i], nil
		}
	}
	for i := range infos {
		if strings.Contains(infos[i].Name(), name) {
			return &infos[i], nil
		}
	}

	return nil, errors.Newf("no matching audio device found: %s", name).
		Component("transport").
		Category(errors.CategoryValidation).
		Context("device", name).
		Context("available_devices", len(infos)).
		Build()
}

// hexToASCII converts a hexadecimal string to an ASCII string.
func hexToASCII(hexStr string) (string, error) {
	bytes, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
