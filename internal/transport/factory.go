package transport

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// New builds a Transport of the given type from a free-form options map,
// as found under `transport.options` in the configuration file.
func New(typ string, options map[string]interface{}) (Transport, error) {
	switch typ {
	case TypeSerial:
		var opts SerialOptions
		if err := decodeOptions(options, &opts); err != nil {
			return nil, err
		}
		return NewSerial(opts)
	case TypeTCP:
		var opts TCPOptions
		if err := decodeOptions(options, &opts); err != nil {
			return nil, err
		}
		return NewTCP(opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
}

func decodeOptions(options map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("invalid transport options: %w", err)
	}
	return nil
}
