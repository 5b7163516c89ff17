package traefik

import (
	"fmt"
	"path"
	"strings"
)

// =============================================================================
// Traefik Label Generation Functions
// =============================================================================

// GenerateLabels generates Traefik reverse proxy labels for a container.
//
// The generated labels configure Traefik to route HTTP(S) traffic to the container:
//   - Enables Traefik for the container
//   - Creates a router with Host rule for the specified hostname
//   - Configures the service loadbalancer port
//   - If TLS is enabled, creates an additional secure router
//
// Example (HTTP only):
//
//	labels := GenerateLabels(LabelParams{
//	    RouterName: "demo_demo_default",
//	    Hostname:   "demo.example.com",
//	    Port:       3000,
//	})
//	// Returns:
//	// {
//	//   "traefik.enable": "true",
//	//   "traefik.http.routers.demo_demo_default.rule": "Host(`demo.example.com`)",
//	//   "traefik.http.routers.demo_demo_default.entrypoints": "web",
//	//   "traefik.http.services.demo_demo_default.loadbalancer.server.port": "3000",
//	// }
func GenerateLabels(params LabelParams) map[string]string {
	name := strings.ReplaceAll(params.RouterName, ".", "-")
	rule := fmt.Sprintf("Host(`%s`)", params.Hostname)

	labels := map[string]string{
		"traefik.enable": "true",

		fmt.Sprintf("traefik.http.routers.%s.rule", name):        rule,
		fmt.Sprintf("traefik.http.routers.%s.entrypoints", name): EntrypointWeb,
		fmt.Sprintf("traefik.http.routers.%s.service", name):     name,

		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", name): fmt.Sprintf("%d", params.Port),
	}

	if params.Network != "" {
		labels["traefik.docker.network"] = params.Network
	}

	if params.EnableTLS {
		secureName := name + "-secure"
		labels[fmt.Sprintf("traefik.http.routers.%s.rule", secureName)] = rule
		labels[fmt.Sprintf("traefik.http.routers.%s.entrypoints", secureName)] = EntrypointWebSecure
		labels[fmt.Sprintf("traefik.http.routers.%s.service", secureName)] = name
		labels[fmt.Sprintf("traefik.http.routers.%s.tls", secureName)] = "true"
		labels[fmt.Sprintf("traefik.http.routers.%s.tls.certresolver", secureName)] = CertResolver
	}

	return labels
}

// ProxyArgs returns the command line of the proxy container.
//
// Containers are only routed when they opt in with traefik.enable. The ACME
// resolver is configured only when an email is given.
func ProxyArgs(params ProxyParams) []string {
	args := []string{
		"--providers.docker=true",
		"--providers.docker.exposedbydefault=false",
		fmt.Sprintf("--entrypoints.%s.address=:80", EntrypointWeb),
		fmt.Sprintf("--entrypoints.%s.address=:443", EntrypointWebSecure),
	}
	if params.Network != "" {
		args = append(args, "--providers.docker.network="+params.Network)
	}
	if params.ACMEEmail != "" {
		prefix := "--certificatesresolvers." + CertResolver + ".acme"
		args = append(args,
			prefix+".email="+params.ACMEEmail,
			prefix+".storage="+path.Join(params.StorageDir, "acme.json"),
			prefix+".httpchallenge.entrypoint="+EntrypointWeb,
		)
	}
	return args
}
