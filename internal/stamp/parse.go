package stamp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"numstamp/internal/constant"
	"numstamp/internal/numutil"
)

// ErrSyntax reports text that is not a stamp in the debug format.
var ErrSyntax = errors.New("numstamp: malformed stamp")

// Parse reads a stamp in the format produced by String. Loose descriptions
// are accepted and canonicalized, so Parse(s.String()) equals s but the
// reverse need not hold.
func Parse(text string) (Stamp, error) {
	text = strings.TrimSpace(text)
	switch text {
	case "void":
		return Void(), nil
	case "void*":
		return Pointer(), nil
	case "illegal":
		return Illegal(), nil
	case "":
		return nil, fmt.Errorf("parse stamp: empty input: %w", ErrSyntax)
	}
	var (
		s   Stamp
		err error
	)
	switch text[0] {
	case 'i':
		s, err = parseInteger(text)
	case 'f':
		s, err = parseFloat(text)
	case 'a':
		s, err = parseObject(text)
	default:
		err = ErrSyntax
	}
	if err != nil {
		return nil, fmt.Errorf("parse stamp %q: %w", text, err)
	}
	return s, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(text string) Stamp {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// splitWidth reads the decimal width after the one-letter kind prefix.
func splitWidth(text string) (int, string, error) {
	end := 1
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	u, err := strconv.ParseUint(text[1:end], 10, 8)
	if err != nil {
		return 0, "", fmt.Errorf("width %q: %w", text[1:end], ErrSyntax)
	}
	w, err := safecast.Conv[int](u)
	if err != nil {
		return 0, "", err
	}
	return w, text[end:], nil
}

// cutRange strips a leading " [..]" group and returns its inner text.
func cutRange(rest string) (inner, tail string, ok bool, err error) {
	if !strings.HasPrefix(rest, " [") {
		return "", rest, false, nil
	}
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return "", "", false, fmt.Errorf("unterminated range: %w", ErrSyntax)
	}
	return rest[2:end], rest[end+1:], true, nil
}

func parseInteger(text string) (Stamp, error) {
	width, rest, err := splitWidth(text)
	if err != nil {
		return nil, err
	}
	if !constant.ValidIntBits(width) {
		return nil, fmt.Errorf("integer width %d: %w", width, ErrSyntax)
	}
	if rest == "<empty>" {
		return EmptyInteger(width), nil
	}

	lower, upper := numutil.MinValue(width), numutil.MaxValue(width)
	inner, rest, ok, err := cutRange(rest)
	if err != nil {
		return nil, err
	}
	if ok {
		lo, hi, pair := strings.Cut(inner, " - ")
		if lower, err = parseBound(lo, width); err != nil {
			return nil, err
		}
		upper = lower
		if pair {
			if upper, err = parseBound(hi, width); err != nil {
				return nil, err
			}
		}
		if lower > upper {
			return nil, fmt.Errorf("inverted range [%d - %d]: %w", lower, upper, ErrSyntax)
		}
	}

	must, may := uint64(0), numutil.Mask(width)
	if pattern, found := strings.CutPrefix(rest, " bits:"); found {
		end := strings.IndexByte(pattern, ' ')
		if end < 0 {
			end = len(pattern)
		}
		if must, may, err = parseBitPattern(pattern[:end], width); err != nil {
			return nil, err
		}
		rest = pattern[end:]
	}

	canBeZero := true
	if tail, found := strings.CutPrefix(rest, " {!=0}"); found {
		canBeZero = false
		rest = tail
	}
	if rest != "" {
		return nil, fmt.Errorf("trailing %q: %w", rest, ErrSyntax)
	}
	return CreateInteger(width, lower, upper, must, may, canBeZero), nil
}

func parseBound(text string, width int) (int64, error) {
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil || !numutil.IsSigned(v, width) {
		return 0, fmt.Errorf("bound %q for i%d: %w", text, width, ErrSyntax)
	}
	return v, nil
}

// parseBitPattern expands the c...c shorthand to the full width.
func parseBitPattern(p string, width int) (must, may uint64, err error) {
	if len(p) >= 5 && p[1:4] == "..." && p[0] == p[4] {
		leading := width - (len(p) - 5)
		if leading < 1 {
			return 0, 0, fmt.Errorf("bit pattern %q longer than i%d: %w", p, width, ErrSyntax)
		}
		p = strings.Repeat(p[:1], leading) + p[5:]
	}
	if len(p) != width {
		return 0, 0, fmt.Errorf("bit pattern %q for i%d: %w", p, width, ErrSyntax)
	}
	for i := range len(p) {
		bit := uint64(1) << uint(width-1-i)
		switch p[i] {
		case '0':
		case '1':
			must |= bit
			may |= bit
		case 'x':
			may |= bit
		default:
			return 0, 0, fmt.Errorf("bit %q in pattern %q: %w", p[i], p, ErrSyntax)
		}
	}
	return must, may, nil
}

func parseFloat(text string) (Stamp, error) {
	width, rest, err := splitWidth(text)
	if err != nil {
		return nil, err
	}
	if !constant.ValidFloatBits(width) {
		return nil, fmt.Errorf("float width %d: %w", width, ErrSyntax)
	}
	if rest == "<empty>" {
		return EmptyFloat(width), nil
	}
	nonNaN := false
	if tail, found := strings.CutPrefix(rest, "!"); found {
		nonNaN = true
		rest = tail
	}
	lower, upper := math.Inf(-1), math.Inf(1)
	inner, rest, ok, err := cutRange(rest)
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("trailing %q: %w", rest, ErrSyntax)
	}
	if ok {
		lo, hi, pair := strings.Cut(inner, " - ")
		if lower, err = parseFloatBound(lo, width); err != nil {
			return nil, err
		}
		upper = lower
		if pair {
			if upper, err = parseFloatBound(hi, width); err != nil {
				return nil, err
			}
		}
	}
	switch {
	case math.IsNaN(lower) != math.IsNaN(upper):
		return nil, fmt.Errorf("mixed NaN bounds: %w", ErrSyntax)
	case math.IsNaN(lower) && nonNaN:
		return nil, fmt.Errorf("NaN bounds on a non-NaN stamp: %w", ErrSyntax)
	case lower > upper:
		return nil, fmt.Errorf("inverted range: %w", ErrSyntax)
	}
	return CreateFloat(width, lower, upper, nonNaN), nil
}

func parseFloatBound(text string, width int) (float64, error) {
	v, err := strconv.ParseFloat(text, width)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("bound %q for f%d: %w", text, width, ErrSyntax)
	}
	return v, nil
}

func parseObject(text string) (Stamp, error) {
	if text == "a<empty>" {
		return objectEmpty, nil
	}
	rest := text[1:]
	nonNull, exact := false, false
	if tail, found := strings.CutPrefix(rest, "!"); found {
		nonNull = true
		rest = tail
	}
	if tail, found := strings.CutPrefix(rest, "#"); found {
		exact = true
		rest = tail
	}
	rest, ok := strings.CutPrefix(rest, " ")
	if !ok || rest == "" {
		return nil, fmt.Errorf("missing type: %w", ErrSyntax)
	}
	alwaysNull := false
	if head, found := strings.CutSuffix(rest, " NULL"); found {
		alwaysNull = true
		rest = head
	}
	if strings.ContainsRune(rest, ' ') {
		return nil, fmt.Errorf("type %q: %w", rest, ErrSyntax)
	}
	if rest == "-" {
		rest = ""
	}
	return ForObject(rest, exact, nonNull, alwaysNull), nil
}
