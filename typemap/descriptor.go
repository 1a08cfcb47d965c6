package typemap

import (
	"regexp"
	"strconv"
	"strings"
)

// HostTypeDescriptor describes a caller-side type plus sizing hints.
type HostTypeDescriptor struct {
	Type          HostType
	Length        *int
	Precision     *int
	Scale         *int
	IsUnicode     *bool
	IsFixedLength *bool
}

// SQLTypeDescriptor is a dialect specific type declaration ready to render into DDL.
type SQLTypeDescriptor struct {
	SQLTypeName   string
	Length        *int
	Precision     *int
	Scale         *int
	IsUnicode     *bool
	IsFixedLength *bool
}

// Describe returns a descriptor for h with no sizing hints.
func Describe(h HostType) HostTypeDescriptor {
	return HostTypeDescriptor{Type: h}
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// MaxLength is the length value used for unbounded types such as varchar(max).
const MaxLength = -1

var (
	parenGroup = regexp.MustCompile(`\([^)]*\)`)
	spaces     = regexp.MustCompile(`\s+`)
)

// ParseSQLType splits a raw catalog type into its lower-cased base name and
// sizing arguments. "numeric(10,2)" yields base "numeric" with precision 10 and
// scale 2; "varchar(max)" yields length MaxLength.
func ParseSQLType(raw string) SQLTypeDescriptor {
	s := strings.ToLower(strings.TrimSpace(raw))
	d := SQLTypeDescriptor{}

	if group := parenGroup.FindString(s); group != "" {
		args := strings.Split(group[1:len(group)-1], ",")
		var nums []int
		numeric := true
		for _, a := range args {
			a = strings.TrimSpace(a)
			if a == "max" {
				d.Length = IntPtr(MaxLength)
				numeric = false
				break
			}
			n, err := strconv.Atoi(a)
			if err != nil {
				numeric = false
				break
			}
			nums = append(nums, n)
		}
		if numeric {
			switch len(nums) {
			case 1:
				d.Length = IntPtr(nums[0])
			case 2:
				d.Precision = IntPtr(nums[0])
				d.Scale = IntPtr(nums[1])
			}
		}
	}

	base := parenGroup.ReplaceAllString(s, "")
	base = spaces.ReplaceAllString(strings.TrimSpace(base), " ")
	base = strings.ReplaceAll(base, " []", "[]")
	d.SQLTypeName = base
	return d
}

// BaseTypeName returns the lower-cased type name with sizing clauses removed.
func BaseTypeName(raw string) string {
	return ParseSQLType(raw).SQLTypeName
}
