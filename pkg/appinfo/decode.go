package appinfo

import (
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/hashicorp/go-hclog"
)

// Decode converts the authority's a{sv} reply into an AppInfo.
//
// Entries whose variant is not one of the supported kinds are dropped and
// logged; they never reach the returned map.
func Decode(entries map[string]dbus.Variant, logger hclog.Logger) AppInfo {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	info := make(AppInfo, len(entries))
	for _, key := range keys {
		variant := entries[key]
		value, ok := decodeVariant(variant)
		if !ok {
			sig := variant.Signature().String()
			if strings.HasPrefix(sig, "a") {
				logger.Error("only arrays of strings are supported", "key", key, "signature", sig)
			} else {
				logger.Warn("reply contains unhandled variant type", "key", key, "signature", sig)
			}
			continue
		}
		logger.Debug("app info entry", "key", key, "value", value.String())
		info[key] = value
	}
	return info
}

func decodeVariant(variant dbus.Variant) (Value, bool) {
	switch v := variant.Value().(type) {
	case int32:
		return Int32(v), true
	case uint32:
		return UInt32(v), true
	case bool:
		return Bool(v), true
	case string:
		return String(v), true
	case []string:
		return StringList(append([]string(nil), v...)), true
	default:
		return nil, false
	}
}
