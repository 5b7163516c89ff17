package traefik

// =============================================================================
// Traefik Configuration Types
// =============================================================================

// CertResolver is the name of the ACME resolver configured by ProxyArgs.
const CertResolver = "letsencrypt"

// Entrypoint names shared by ProxyArgs and GenerateLabels.
const (
	EntrypointWeb       = "web"
	EntrypointWebSecure = "websecure"
)

// LabelParams contains parameters for generating Traefik labels.
type LabelParams struct {
	// RouterName names the router and service. Dots are replaced with hyphens.
	RouterName string

	// Hostname is the domain routed to the container (e.g., "demo.example.com").
	Hostname string

	// Port is the container port to route traffic to.
	Port int

	// Network is the docker network the proxy reaches the container on.
	Network string

	// EnableTLS adds an HTTPS router using CertResolver.
	EnableTLS bool
}

// ProxyParams contains parameters for the proxy container's static configuration.
type ProxyParams struct {
	// Network restricts the docker provider to one network.
	Network string

	// ACMEEmail enables Let's Encrypt certificates when set.
	ACMEEmail string

	// StorageDir is the directory inside the container holding acme.json.
	StorageDir string
}
