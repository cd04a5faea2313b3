package config

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// BindingPrefix is the key prefix of the console section in the YAML file.
const BindingPrefix = "rocketmq.config"

// ErrInvalidConfigFile indicates the configuration file could not be decoded.
var ErrInvalidConfigFile = errors.New("invalid configuration file")

// Bindings carries explicitly configured console values. A nil field was not
// configured and leaves the Resolver's own fallback chain in charge.
type Bindings struct {
	NamesrvAddr            *string `mapstructure:"namesrvAddr"`
	IsVIPChannel           *string `mapstructure:"isVIPChannel"`
	DataPath               *string `mapstructure:"dataPath"`
	EnableDashBoardCollect *string `mapstructure:"enableDashBoardCollect"`
	LoginRequired          *bool   `mapstructure:"loginRequired"`
	AccessKey              *string `mapstructure:"accessKey"`
	SecretKey              *string `mapstructure:"secretKey"`
	UseTLS                 *bool   `mapstructure:"useTLS"`
	TimeoutMillis          *int64  `mapstructure:"timeoutMillis"`
}

// Merge returns b with every non-nil field of over applied on top.
func (b Bindings) Merge(over Bindings) Bindings {
	out := b
	mergeField(&out.NamesrvAddr, over.NamesrvAddr)
	mergeField(&out.IsVIPChannel, over.IsVIPChannel)
	mergeField(&out.DataPath, over.DataPath)
	mergeField(&out.EnableDashBoardCollect, over.EnableDashBoardCollect)
	mergeField(&out.LoginRequired, over.LoginRequired)
	mergeField(&out.AccessKey, over.AccessKey)
	mergeField(&out.SecretKey, over.SecretKey)
	mergeField(&out.UseTLS, over.UseTLS)
	mergeField(&out.TimeoutMillis, over.TimeoutMillis)
	return out
}

func mergeField[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// Bind hands every configured value to the matching Resolver setter.
func Bind(r *Resolver, b Bindings) {
	if b.NamesrvAddr != nil {
		r.SetNamesrvAddr(*b.NamesrvAddr)
	}
	if b.IsVIPChannel != nil {
		r.SetIsVIPChannel(*b.IsVIPChannel)
	}
	if b.DataPath != nil {
		r.SetDataPath(*b.DataPath)
	}
	if b.EnableDashBoardCollect != nil {
		r.SetEnableDashBoardCollect(*b.EnableDashBoardCollect)
	}
	if b.LoginRequired != nil {
		r.SetLoginRequired(*b.LoginRequired)
	}
	if b.AccessKey != nil {
		r.SetAccessKey(*b.AccessKey)
	}
	if b.SecretKey != nil {
		r.SetSecretKey(*b.SecretKey)
	}
	if b.UseTLS != nil {
		r.SetUseTLS(*b.UseTLS)
	}
	if b.TimeoutMillis != nil {
		r.SetTimeoutMillis(*b.TimeoutMillis)
	}
}

// decodeBindings extracts the console section from YAML data. The section may
// be nested (rocketmq: {config: {...}}) or written as flat dotted keys
// (rocketmq.config.namesrvAddr: ...); flat keys win.
func decodeBindings(data []byte) (Bindings, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Bindings{}, fmt.Errorf("%w: parse YAML: %v", ErrInvalidConfigFile, err)
	}

	var out Bindings
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(boolToStringHook),
		MatchName:        relaxedNameMatch,
	})
	if err != nil {
		return Bindings{}, err
	}

	if err := decoder.Decode(consoleSection(raw)); err != nil {
		return Bindings{}, fmt.Errorf("%w: decode %s: %v", ErrInvalidConfigFile, BindingPrefix, err)
	}

	return out, nil
}

func consoleSection(raw map[string]any) map[string]any {
	section := make(map[string]any)

	if rmq, ok := raw["rocketmq"].(map[string]any); ok {
		if nested, ok := rmq["config"].(map[string]any); ok {
			maps.Copy(section, nested)
		}
	}
	if nested, ok := raw[BindingPrefix].(map[string]any); ok {
		maps.Copy(section, nested)
	}
	for key, value := range raw {
		if field, ok := strings.CutPrefix(key, BindingPrefix+"."); ok {
			section[field] = value
		}
	}

	return section
}

// boolToStringHook keeps YAML booleans readable when they land in string
// fields; weak decoding alone would turn true into "1".
func boolToStringHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.Bool && to.Kind() == reflect.String {
		return strconv.FormatBool(data.(bool)), nil
	}
	return data, nil
}

// relaxedNameMatch lets namesrvAddr, namesrv-addr and namesrv_addr bind to
// the same field.
func relaxedNameMatch(mapKey, fieldName string) bool {
	return normalizeKey(mapKey) == normalizeKey(fieldName)
}

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	return strings.NewReplacer("-", "", "_", "").Replace(key)
}
