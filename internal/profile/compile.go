package profile

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// CompileProfile parses a CUE value into a VendorProfile and validates it.
// The value should be the profile struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`profile: zkteco: { in: [0], out: [1] }`)
//	p, err := CompileProfile(v.LookupPath(cue.ParsePath("profile.zkteco")))
func CompileProfile(v cue.Value) (*punch.VendorProfile, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &punch.VendorProfile{}

	// Profile name comes from the struct label (the path selector).
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		p.Name = labels[len(labels)-1].String()
	}

	// timezone is optional; empty means GMT.
	tzVal := v.LookupPath(cue.ParsePath("timezone"))
	if tzVal.Exists() {
		tz, err := tzVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p.Timezone = tz
	}

	var err error
	p.In, err = parseCodes(v, "in")
	if err != nil {
		return nil, err
	}
	p.Out, err = parseCodes(v, "out")
	if err != nil {
		return nil, err
	}

	p.Method, err = parseMethods(v)
	if err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, &CompileError{
			Field:   "profile",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return p, nil
}

// parseCodes reads a required list of punch codes from the named field.
func parseCodes(v cue.Value, field string) ([]int, error) {
	listVal := v.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		return nil, &CompileError{
			Field:   field,
			Message: field + " codes are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var codes []int
	for iter.Next() {
		code, err := iter.Value().Int64()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("punch codes must be integers: %v", err),
				Pos:     iter.Value().Pos(),
			}
		}
		codes = append(codes, int(code))
	}
	return codes, nil
}

// parseMethods reads the optional method label map. CUE struct labels are
// strings, so keys arrive as "1", "15" and are parsed to ints here.
func parseMethods(v cue.Value) (map[int]string, error) {
	methodVal := v.LookupPath(cue.ParsePath("method"))
	if !methodVal.Exists() {
		return nil, nil
	}

	iter, err := methodVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	methods := make(map[int]string)
	for iter.Next() {
		key, err := strconv.Atoi(iter.Label())
		if err != nil {
			return nil, &CompileError{
				Field:   "method",
				Message: fmt.Sprintf("method keys must be numeric, got %q", iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
		label, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		methods[key] = label
	}
	return methods, nil
}

// CompileError is a profile compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
