package httpapi

import (
	"net/http"
	"strings"
)

// Operation is a request resolved once from its method and path.
type Operation int

const (
	OpUnknown Operation = iota
	OpChallengeRegistration
	OpRegister
	OpChallengeAuthentication
	OpUnlock
	OpSign
	OpAccount
	OpHealth
	OpMetrics
)

func (o Operation) String() string {
	switch o {
	case OpChallengeRegistration:
		return "challenge_registration"
	case OpRegister:
		return "register"
	case OpChallengeAuthentication:
		return "challenge_authentication"
	case OpUnlock:
		return "unlock"
	case OpSign:
		return "sign"
	case OpAccount:
		return "account"
	case OpHealth:
		return "health"
	case OpMetrics:
		return "metrics"
	default:
		return "unknown"
	}
}

// rateLimited reports whether the operation is open to unauthenticated
// callers and therefore throttled per client.
func (o Operation) rateLimited() bool {
	switch o {
	case OpChallengeRegistration, OpRegister, OpChallengeAuthentication, OpUnlock:
		return true
	default:
		return false
	}
}

type route struct {
	method string
	op     Operation
}

var routes = map[string][]route{
	"/open/register": {{http.MethodGet, OpChallengeRegistration}, {http.MethodPost, OpRegister}},
	"/open":          {{http.MethodGet, OpChallengeAuthentication}, {http.MethodPost, OpUnlock}},
	"/sign":          {{http.MethodPost, OpSign}},
	"/account":       {{http.MethodGet, OpAccount}},
	"/healthz":       {{http.MethodGet, OpHealth}},
	"/metrics":       {{http.MethodGet, OpMetrics}},
}

// resolveOperation maps a request line to an operation, or to the status to
// answer with: 404 for unknown paths, 405 for a known path and wrong method.
func resolveOperation(method, path string) (Operation, int) {
	candidates, ok := routes[path]
	if !ok {
		return OpUnknown, http.StatusNotFound
	}
	for _, r := range candidates {
		if r.method == method {
			return r.op, http.StatusOK
		}
	}
	return OpUnknown, http.StatusMethodNotAllowed
}

func allowedMethods(path string) string {
	methods := make([]string, 0, 2)
	for _, r := range routes[path] {
		methods = append(methods, r.method)
	}
	return strings.Join(methods, ", ")
}
