package config

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		TrimmedLowerStringHookFunc(),
	)),
}

// LowerCaseString is implemented by named string types that are matched case-insensitively.
// Values decoded into them are trimmed and lower-cased.
type LowerCaseString interface {
	LowerCased()
}

var lowerCaseStringType = reflect.TypeOf((*LowerCaseString)(nil)).Elem()

// TrimmedLowerStringHookFunc normalises strings decoded into any type implementing LowerCaseString.
func TrimmedLowerStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// check that src and target types are valid
		if f.Kind() != reflect.String || !t.Implements(lowerCaseStringType) {
			return data, nil
		}
		return strings.ToLower(strings.TrimSpace(data.(string))), nil
	}
}
