package policyopa

import "github.com/open-policy-agent/opa/ast"

// permittedBuiltins keeps signing policies pure: no clock, network or
// randomness, so the same input always yields the same decision.
var permittedBuiltins = map[string]struct{}{
	"assign":     {},
	"concat":     {},
	"contains":   {},
	"count":      {},
	"endswith":   {},
	"eq":         {},
	"equal":      {},
	"lower":      {},
	"neq":        {},
	"object.get": {},
	"replace":    {},
	"sort":       {},
	"split":      {},
	"sprintf":    {},
	"startswith": {},
	"trim":       {},
	"trim_space": {},
	"upper":      {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(permittedBuiltins))
	for _, builtin := range builtins {
		if _, ok := permittedBuiltins[builtin.Name]; ok {
			allowed = append(allowed, builtin)
		}
	}
	return allowed
}
