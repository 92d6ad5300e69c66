package appinfo

import "sort"

// Keys reported by the authority. Only Exec, Permissions and Mode take
// part in the launch decision; the rest are shown by diagnostics.
const (
	KeyName            = "Name"
	KeyType            = "Type"
	KeyIcon            = "Icon"
	KeyExec            = "Exec"
	KeyNoDisplay       = "NoDisplay"
	KeyMaemoService    = "X-Maemo-Service"
	KeyMaemoObjectPath = "X-Maemo-Object-Path"
	KeyMaemoMethod     = "X-Maemo-Method"
	KeyMaemoFixedArgs  = "X-Maemo-Fixed-Args"
	KeyOrganization    = "OrganizationName"
	KeyApplication     = "ApplicationName"
	KeyPermissions     = "Permissions"
	KeyMode            = "Mode"
	KeyApplicationType = "X-Nemo-Application-Type"
	KeySingleInstance  = "X-Nemo-Single-Instance"
	KeyOssoService     = "X-Osso-Service"
)

// knownKeys is the display order of the keys above.
var knownKeys = []string{
	KeyName,
	KeyType,
	KeyIcon,
	KeyExec,
	KeyNoDisplay,
	KeyOrganization,
	KeyApplication,
	KeyPermissions,
	KeyMode,
	KeyApplicationType,
	KeySingleInstance,
	KeyMaemoService,
	KeyMaemoObjectPath,
	KeyMaemoMethod,
	KeyMaemoFixedArgs,
	KeyOssoService,
}

// Sandboxing modes carried in the Mode key.
const (
	ModeNormal        = "Normal"
	ModeCompatibility = "Compatibility"
	ModeNone          = "None"
)

// AppInfo maps metadata keys to values for one application.
type AppInfo map[string]Value

// String returns the string stored under key. ok is false when the key is
// missing or holds another kind of value.
func (info AppInfo) String(key string) (string, bool) {
	v, ok := info[key].(String)
	return string(v), ok
}

// Strings returns a copy of the string list stored under key.
func (info AppInfo) Strings(key string) ([]string, bool) {
	v, ok := info[key].(StringList)
	if !ok {
		return nil, false
	}
	return append([]string(nil), v...), true
}

// Keys returns the keys present in info: the well-known keys first in a
// fixed order, then any others sorted.
func (info AppInfo) Keys() []string {
	keys := make([]string, 0, len(info))
	known := make(map[string]bool, len(knownKeys))
	for _, key := range knownKeys {
		known[key] = true
		if _, ok := info[key]; ok {
			keys = append(keys, key)
		}
	}

	var rest []string
	for key := range info {
		if !known[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (info AppInfo) Bool(key string) (bool, bool) {
	v, ok := info[key].(Bool)
	return bool(v), ok
}

func (info AppInfo) Int32(key string) (int32, bool) {
	v, ok := info[key].(Int32)
	return int32(v), ok
}

func (info AppInfo) UInt32(key string) (uint32, bool) {
	v, ok := info[key].(UInt32)
	return uint32(v), ok
}

// Sandboxed reports whether the Mode key asks for a sandbox. A missing
// Mode or "None" means the application runs unconfined.
func (info AppInfo) Sandboxed() bool {
	mode, ok := info.String(KeyMode)
	return ok && mode != ModeNone
}
