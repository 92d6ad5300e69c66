// Package appinfo models the application metadata reported by the
// permission authority.
package appinfo

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is one metadata value. It is a closed union: the only
// implementations are Int32, UInt32, Bool, String and StringList.
type Value interface {
	// Kind names the wire type, e.g. "int32" or "string".
	Kind() string
	fmt.Stringer

	sealed()
}

type (
	Int32      int32
	UInt32     uint32
	Bool       bool
	String     string
	StringList []string
)

func (Int32) sealed()      {}
func (UInt32) sealed()     {}
func (Bool) sealed()       {}
func (String) sealed()     {}
func (StringList) sealed() {}

func (Int32) Kind() string      { return "int32" }
func (UInt32) Kind() string     { return "uint32" }
func (Bool) Kind() string       { return "bool" }
func (String) Kind() string     { return "string" }
func (StringList) Kind() string { return "strv" }

func (v Int32) String() string  { return "int32:" + strconv.FormatInt(int64(v), 10) }
func (v UInt32) String() string { return "uint32:" + strconv.FormatUint(uint64(v), 10) }
func (v Bool) String() string   { return "bool:" + strconv.FormatBool(bool(v)) }
func (v String) String() string { return "string:" + strconv.Quote(string(v)) }

func (v StringList) String() string {
	quoted := make([]string, len(v))
	for i, s := range v {
		quoted[i] = strconv.Quote(s)
	}
	return "strv:[" + strings.Join(quoted, ", ") + "]"
}
