// Package traefik provides pure functions for configuring the Traefik reverse proxy.
//
// The proxy is a single shared container per host. It reads its routes from the
// labels of the containers it fronts, so this package produces two things: the
// static command line of the proxy container and the dynamic labels of a routed
// application container.
//
// # Functions
//
//   - GenerateLabels: router and service labels for HTTP/HTTPS routing
//   - ProxyArgs: the proxy container's static configuration flags
//
// # Usage
//
//	labels := traefik.GenerateLabels(traefik.LabelParams{
//	    RouterName: ctx.ContainerNameOf(domain.ServiceApp),
//	    Hostname:   cfg.Domain,
//	    Port:       cfg.Port,
//	    Network:    deployment.NetworkName,
//	    EnableTLS:  cfg.ACMEEmail != "",
//	})
package traefik
