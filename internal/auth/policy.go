package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/domain"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

const policyParamsKey = "policy_params"

// Predicate decides whether the bound principal may proceed with the request.
// A nil principal means the request carried no valid identity.
type Predicate func(c *fiber.Ctx, principal *Principal) error

// Rule binds one route pattern to a predicate. Pattern segments prefixed with
// ':' match any single non-empty path segment and are captured as parameters.
type Rule struct {
	Method    string
	Pattern   string
	Predicate Predicate
}

func (r Rule) matches(method, path string) (map[string]string, bool) {
	if !strings.EqualFold(r.Method, method) {
		return nil, false
	}
	return matchPattern(r.Pattern, path)
}

func matchPattern(pattern, path string) (map[string]string, bool) {
	patSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	pathSegs := strings.Split(strings.Trim(path, "/"), "/")
	if len(patSegs) != len(pathSegs) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range patSegs {
		if strings.HasPrefix(seg, ":") {
			if pathSegs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[seg[1:]] = pathSegs[i]
			continue
		}
		if seg != pathSegs[i] {
			return nil, false
		}
	}
	return params, true
}

// Policy is an ordered route authorization table. The first matching rule
// wins; a request matching no rule is denied.
type Policy struct {
	rules []Rule
}

// NewPolicy builds a policy from an ordered rule list.
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// Middleware evaluates the table against the request's bound principal. It
// must run after AuthMiddleware and before any business handler.
func (p *Policy) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := p.Evaluate(c, principal); err != nil {
			return err
		}
		return c.Next()
	}
}

// Evaluate applies the first rule matching the request method and path.
func (p *Policy) Evaluate(c *fiber.Ctx, principal *Principal) error {
	for _, rule := range p.rules {
		params, ok := rule.matches(c.Method(), c.Path())
		if !ok {
			continue
		}
		if params != nil {
			c.Locals(policyParamsKey, params)
		}
		return rule.Predicate(c, principal)
	}
	return apperrors.NewAuthorizationDenied("no policy allows this request")
}

// Public allows every request, with or without a bound identity.
func Public() Predicate {
	return func(_ *fiber.Ctx, _ *Principal) error {
		return nil
	}
}

// Authenticated requires any bound identity.
func Authenticated() Predicate {
	return func(_ *fiber.Ctx, principal *Principal) error {
		if principal == nil || principal.Username == "" {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return nil
	}
}

// HasRole requires the bound identity to carry the exact role.
func HasRole(role domain.Role) Predicate {
	return func(_ *fiber.Ctx, principal *Principal) error {
		if principal == nil || principal.Username == "" {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if principal.Role != role {
			return apperrors.NewAuthorizationDenied("insufficient role")
		}
		return nil
	}
}

// ResourceIDExtractor pulls the target resource id out of the request.
type ResourceIDExtractor func(c *fiber.Ctx) string

// PathParam extracts a captured pattern parameter as the resource id. The
// policy runs before Fiber resolves route params, so the value comes from the
// rule's own pattern match.
func PathParam(name string) ResourceIDExtractor {
	return func(c *fiber.Ctx) string {
		if params, ok := c.Locals(policyParamsKey).(map[string]string); ok {
			if v, ok := params[name]; ok {
				return v
			}
		}
		return c.Params(name)
	}
}

// OwnerOrRole allows the resource owner and any holder of the fallback role.
func OwnerOrRole(resolver *OwnershipResolver, extract ResourceIDExtractor, role domain.Role) Predicate {
	return func(c *fiber.Ctx, principal *Principal) error {
		if principal == nil || principal.Username == "" {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if principal.Role == role {
			return nil
		}
		if resolver.IsOwner(c.Context(), extract(c), principal.Username) {
			return nil
		}
		return apperrors.NewAuthorizationDenied("not the resource owner")
	}
}
