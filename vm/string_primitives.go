package vm

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ---------------------------------------------------------------------------
// String Intrinsics
// ---------------------------------------------------------------------------

// Positions are rune offsets, matching INDEX_GET on strings.

func init() {
	registerIntrinsics(KindString,
		&Intrinsic{Name: "len", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return FromInt64(int64(utf8.RuneCountInString(recv.Str()))), nil
		}},

		&Intrinsic{Name: "upper", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return FromString(cases.Upper(language.Und).String(recv.Str())), nil
		}},

		&Intrinsic{Name: "lower", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return FromString(cases.Lower(language.Und).String(recv.Str())), nil
		}},

		&Intrinsic{Name: "trim", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return FromString(strings.TrimSpace(recv.Str())), nil
		}},

		// split - an empty separator splits into single characters
		&Intrinsic{Name: "split", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			sep, err := stringArg("split", args[0])
			if err != nil {
				return Null, err
			}
			parts := strings.Split(recv.Str(), sep)
			out := make([]Value, len(parts))
			for i, p := range parts {
				out[i] = FromString(p)
			}
			return NewArray(out), nil
		}},

		&Intrinsic{Name: "contains", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			sub, err := substringArg("contains", args[0])
			if err != nil {
				return Null, err
			}
			return FromBool(strings.Contains(recv.Str(), sub)), nil
		}},

		&Intrinsic{Name: "startsWith", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			p, err := substringArg("startsWith", args[0])
			if err != nil {
				return Null, err
			}
			return FromBool(strings.HasPrefix(recv.Str(), p)), nil
		}},

		&Intrinsic{Name: "endsWith", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			s, err := substringArg("endsWith", args[0])
			if err != nil {
				return Null, err
			}
			return FromBool(strings.HasSuffix(recv.Str(), s)), nil
		}},

		// replace - replace every literal occurrence of old with new
		&Intrinsic{Name: "replace", Min: 2, Max: 2, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			old, err := substringArg("replace", args[0])
			if err != nil {
				return Null, err
			}
			repl, err := stringArg("replace", args[1])
			if err != nil {
				return Null, err
			}
			return FromString(strings.ReplaceAll(recv.Str(), old, repl)), nil
		}},

		// matches - true if the pattern matches anywhere in the string
		&Intrinsic{Name: "matches", Min: 1, Max: 1, Fn: func(it *Interpreter, recv Value, args []Value) (Value, error) {
			re, err := it.regexp(args[0])
			if err != nil {
				return Null, err
			}
			ok, err := re.MatchString(recv.Str())
			if err != nil {
				return Null, Errorf(GenericError, "matches: %s", err)
			}
			return FromBool(ok), nil
		}},

		// replaceRegex - replace every match; $1 style group references
		&Intrinsic{Name: "replaceRegex", Min: 2, Max: 2, Fn: func(it *Interpreter, recv Value, args []Value) (Value, error) {
			re, err := it.regexp(args[0])
			if err != nil {
				return Null, err
			}
			repl, err := stringArg("replaceRegex", args[1])
			if err != nil {
				return Null, err
			}
			out, err := re.Replace(recv.Str(), repl, -1, -1)
			if err != nil {
				return Null, Errorf(GenericError, "replaceRegex: %s", err)
			}
			return FromString(out), nil
		}},

		// substring - runes [start, end); end defaults to the length
		&Intrinsic{Name: "substring", Min: 1, Max: 2, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			runes := []rune(recv.Str())
			start, err := intArg("substring", args[0])
			if err != nil {
				return Null, err
			}
			end := len(runes)
			if len(args) == 2 {
				if end, err = intArg("substring", args[1]); err != nil {
					return Null, err
				}
			}
			if start < 0 || end > len(runes) || start > end {
				return Null, Errorf(IndexError, "substring [%d, %d) out of range for length %d", start, end, len(runes))
			}
			return FromString(string(runes[start:end])), nil
		}},

		// indexOf - rune offset of the first occurrence, or -1
		&Intrinsic{Name: "indexOf", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			sub, err := substringArg("indexOf", args[0])
			if err != nil {
				return Null, err
			}
			s := recv.Str()
			i := strings.Index(s, sub)
			if i < 0 {
				return FromInt64(-1), nil
			}
			return FromInt64(int64(utf8.RuneCountInString(s[:i]))), nil
		}},
	)
}

// substringArg accepts a string or a char.
func substringArg(name string, v Value) (string, error) {
	if v.kind == KindChar {
		return string(v.Char()), nil
	}
	return stringArg(name, v)
}

// regexp compiles pattern once per interpreter. Matches give up after
// Options.RegexTimeout.
func (it *Interpreter) regexp(pattern Value) (*regexp2.Regexp, error) {
	expr, err := stringArg("pattern", pattern)
	if err != nil {
		return nil, err
	}
	if re, ok := it.regexps[expr]; ok {
		return re, nil
	}
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, Errorf(TypeError, "invalid pattern %q: %s", expr, err)
	}
	re.MatchTimeout = it.opts.RegexTimeout
	it.regexps[expr] = re
	return re, nil
}
