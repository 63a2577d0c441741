package msgdef

import (
	"bufio"
	"fmt"
	"strings"
)

const (
	requestSuffix  = "Request"
	responseSuffix = "Response"
)

// ServiceDefinition pairs the request and response definitions of a
// service type. The halves are registered as ordinary message types named
// <Service>Request and <Service>Response.
type ServiceDefinition struct {
	typeName string
	request  *Definition
	response *Definition
	err      error
}

func (s *ServiceDefinition) TypeName() string      { return s.typeName }
func (s *ServiceDefinition) Request() *Definition  { return s.request }
func (s *ServiceDefinition) Response() *Definition { return s.response }

// IsValid reports whether both halves parsed.
func (s *ServiceDefinition) IsValid() bool { return s.err == nil }

// Err returns the first failure among the service text and its halves.
func (s *ServiceDefinition) Err() error { return s.err }

// GetService returns the service definition for typeName, parsing it on
// first use. The result is never nil; check IsValid.
func (r *Registry) GetService(typeName string) *ServiceDefinition {
	name := CanonicalName(typeName)
	if s, ok := r.services.Load(name); ok {
		return s.(*ServiceDefinition)
	}

	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	return r.resolveService(name, nil)
}

func (r *Registry) resolveService(name string, chain []string) *ServiceDefinition {
	if s, ok := r.services.Load(name); ok {
		return s.(*ServiceDefinition)
	}

	svc := &ServiceDefinition{typeName: name}
	reqName, respName := name+requestSuffix, name+responseSuffix
	text, err := r.src.Load(KindService, name)
	if err == nil {
		var reqText, respText string
		reqText, respText, err = splitService(text)
		if err == nil {
			svc.request = r.halfFromText(reqName, reqText, chain)
			svc.response = r.halfFromText(respName, respText, chain)
		}
	}
	if err != nil {
		svc.request = r.publish(invalid(reqName, err))
		svc.response = r.publish(invalid(respName, err))
	}
	switch {
	case !svc.request.IsValid():
		svc.err = fmt.Errorf("request: %w", svc.request.err)
	case !svc.response.IsValid():
		svc.err = fmt.Errorf("response: %w", svc.response.err)
	}
	r.services.Store(name, svc)
	return svc
}

// halfFromText parses and publishes one half unless it is already cached.
func (r *Registry) halfFromText(name, text string, chain []string) *Definition {
	if d, ok := r.defs.Load(name); ok {
		return d.(*Definition)
	}
	return r.publish(r.parse(name, text, append(chain, name)))
}

// serviceHalf resolves <Service>Request / <Service>Response names that have
// no message schema of their own by loading the service. The caller
// publishes the returned definition.
func (r *Registry) serviceHalf(name string, chain []string) (*Definition, bool) {
	var svcName string
	switch {
	case strings.HasSuffix(name, requestSuffix):
		svcName = strings.TrimSuffix(name, requestSuffix)
	case strings.HasSuffix(name, responseSuffix):
		svcName = strings.TrimSuffix(name, responseSuffix)
	default:
		return nil, false
	}
	if _, err := r.src.Load(KindService, svcName); err != nil {
		return nil, false
	}
	svc := r.resolveService(svcName, chain[:len(chain)-1])
	if strings.HasSuffix(name, requestSuffix) {
		return svc.request, true
	}
	return svc.response, true
}

// splitService splits service text at the "---" separator line.
func splitService(text string) (request, response string, err error) {
	var req, resp strings.Builder
	cur := &req
	seps := 0
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "---" {
			seps++
			cur = &resp
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return "", "", err
	}
	if seps != 1 {
		return "", "", fmt.Errorf("service schema needs exactly one --- separator, found %d", seps)
	}
	return req.String(), resp.String(), nil
}
