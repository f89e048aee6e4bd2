package provider

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"
)

const defaultDiagnoseTimeout = 10 * time.Second

type DNSResult struct {
	Host      string
	Success   bool
	Addresses []string
	Error     string
}

type HTTPSResult struct {
	URL        string
	Success    bool
	StatusCode int
	Status     string
	Duration   time.Duration
	Error      string
}

type Diagnosis struct {
	CheckedAt time.Time
	DNS       []DNSResult
	HTTPS     []HTTPSResult
}

type hostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Diagnose resolves every mirror host and issues a plain GET against its
// checkout path. It never fails; each probe reports its own outcome.
func (p *XorPayProvider) Diagnose(ctx context.Context, timeout time.Duration) *Diagnosis {
	if timeout <= 0 {
		timeout = defaultDiagnoseTimeout
	}
	return diagnose(ctx, p.endpoints, p.resolver(), p.client, timeout, p.now)
}

func (p *XorPayProvider) resolver() hostResolver {
	if p.dns != nil {
		return p.dns
	}
	return net.DefaultResolver
}

func diagnose(
	ctx context.Context,
	endpoints []string,
	resolver hostResolver,
	client *http.Client,
	timeout time.Duration,
	now func() time.Time,
) *Diagnosis {
	out := &Diagnosis{CheckedAt: now().UTC()}

	for _, endpoint := range endpoints {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Hostname() == "" {
			out.DNS = append(out.DNS, DNSResult{Host: endpoint, Error: "invalid endpoint"})
			continue
		}
		host := parsed.Hostname()

		lookupCtx, cancel := context.WithTimeout(ctx, timeout)
		addresses, err := resolver.LookupHost(lookupCtx, host)
		cancel()
		if err != nil {
			out.DNS = append(out.DNS, DNSResult{Host: host, Error: err.Error()})
			continue
		}
		out.DNS = append(out.DNS, DNSResult{Host: host, Success: true, Addresses: addresses})
	}

	for _, endpoint := range endpoints {
		out.HTTPS = append(out.HTTPS, probe(ctx, client, endpoint+xorPayCreatePath, timeout))
	}

	return out
}

func probe(ctx context.Context, client *http.Client, target string, timeout time.Duration) HTTPSResult {
	result := HTTPSResult{URL: target}
	started := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, target, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("User-Agent", "memberships/1.0 (connection test)")

	resp, err := client.Do(req)
	result.Duration = time.Since(started)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.Success = true
	result.StatusCode = resp.StatusCode
	result.Status = resp.Status
	return result
}
