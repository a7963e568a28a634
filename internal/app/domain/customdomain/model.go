package customdomain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sarkhq/console/pkg/isotime"
)

// Status tracks verification: Pending -> Verifying -> Verified | Pending.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusVerifying Status = "Verifying"
	StatusVerified  Status = "Verified"
)

// VerificationHost is the label under which the TXT record lives.
const VerificationHost = "_sark-verification"

var hostnamePattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

// DNSRecord is a record the owner must publish.
type DNSRecord struct {
	Type  string `json:"type"`
	Host  string `json:"host"`
	Value string `json:"value"`
}

// CustomDomain is a hostname attached to the console.
type CustomDomain struct {
	ID         int64        `json:"id"`
	DomainName string       `json:"domainName"`
	Status     Status       `json:"status"`
	DNSRecords []DNSRecord  `json:"dnsRecords"`
	CreatedAt  isotime.Time `json:"createdAt"`
}

// NormalizeName lower-cases and validates a domain name.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if name == "" {
		return "", fmt.Errorf("domain name is required")
	}
	if len(name) > 253 || !hostnamePattern.MatchString(name) {
		return "", fmt.Errorf("invalid domain name %q", name)
	}
	return name, nil
}

// VerificationRecord returns the TXT record proving ownership of name.
func VerificationRecord(name, token string) DNSRecord {
	return DNSRecord{
		Type:  "TXT",
		Host:  VerificationHost + "." + name,
		Value: "sark-verify=" + token,
	}
}
