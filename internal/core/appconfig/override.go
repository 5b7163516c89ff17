package appconfig

import "github.com/artpar/dploy/internal/core/domain"

// Resolve applies the override rule for the given command and fills defaults.
// The receiver is not modified. Call Validate first; unknown dependency kinds are skipped.
func (c AppConfig) Resolve(command domain.CommandKind) Resolved {
	r := Resolved{
		Name:       c.Name,
		Dockerfile: orDefault(c.Dockerfile, DefaultDockerfile),
		Context:    orDefault(c.Context, DefaultContext),
		EnvFile:    orDefault(c.EnvFile, DefaultEnvFile),
		Env:        copyStrings(c.Env),
		Watch:      copyStrings(c.Watch),
		Port:       c.Port,
		Domain:     c.Domain,
		ACMEEmail:  c.ACMEEmail,
	}
	if r.Port == 0 {
		r.Port = DefaultPort
	}

	if o, ok := c.Overrides[string(command)]; ok {
		r.applyOverride(o)
	}

	for _, d := range c.Dependencies {
		kind, err := domain.ParseServiceKind(d.Kind)
		if err != nil {
			continue
		}
		r.Dependencies = append(r.Dependencies, ResolvedDependency{
			Kind:     kind,
			Username: orDefault(d.Username, "postgres"),
			Password: orDefault(d.Password, "postgres"),
			Database: orDefault(d.Database, r.Name),
		})
	}

	return r
}

func (r *Resolved) applyOverride(o Override) {
	if o.Name != "" {
		r.Name = o.Name
	}
	if o.Dockerfile != "" {
		r.Dockerfile = o.Dockerfile
	}
	if o.Context != "" {
		r.Context = o.Context
	}
	if o.EnvFile != "" {
		r.EnvFile = o.EnvFile
	}
	if o.Env != nil {
		r.Env = copyStrings(o.Env)
	}
	if o.Watch != nil {
		r.Watch = copyStrings(o.Watch)
	}
	if o.Port != 0 {
		r.Port = o.Port
	}
	if o.Domain != "" {
		r.Domain = o.Domain
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
