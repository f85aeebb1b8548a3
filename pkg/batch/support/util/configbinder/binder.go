// Package configbinder binds loosely typed property maps onto configuration structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties binds a map of properties to a target struct using mapstructure.
// It uses the "yaml" tag for field names, allows weakly typed input (e.g., "20" to int)
// and decodes duration strings such as "3s" into time.Duration fields.
// Keys absent from properties leave the target's current values untouched.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	if len(properties) == 0 {
		return nil
	}
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(properties); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}
	return nil
}
