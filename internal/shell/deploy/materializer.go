package deploy

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/shell/envfile"
)

// =============================================================================
// Environment Materializer
// =============================================================================

// loadEnv reads the app's env file. Any failure means there are no prior
// values; it is logged and never returned.
func (d *Deployer) loadEnv() (values map[string]string, loaded bool) {
	path := d.ctx.Config().EnvFile
	values, err := envfile.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			d.logger.Debug("no env file yet", "path", path)
		} else {
			d.logger.Warn("failed to load env file", "path", path, "error", err)
		}
		return map[string]string{}, false
	}
	d.logger.Debug("loaded env file", "path", path, "variables", len(values))
	return values, true
}

// MaterializeEnv rewrites the env file: service variables first with fresh
// values, then the app's own variables with the values already in the file.
func (d *Deployer) MaterializeEnv(existing map[string]string, loaded bool) (deployment.Environment, error) {
	if d.set == nil {
		return deployment.Environment{}, ErrNoServices
	}
	path := d.ctx.Config().EnvFile

	env := deployment.MergeEnvironment(d.set.ServiceVars(), d.ctx.Config().Env, existing)
	content, err := envfile.Render(env)
	if err != nil {
		return deployment.Environment{}, fmt.Errorf("render env file: %w", err)
	}
	if err := envfile.Write(path, content); err != nil {
		return deployment.Environment{}, fmt.Errorf("write env file: %w", err)
	}

	if loaded {
		d.logger.Info("updated env file", "path", path)
	} else {
		d.logger.Info("generated env file, fill in your variables", "path", path)
	}
	return env, nil
}

// appEnvironment values every declared app variable from the env file, then
// from the process environment. Unset variables are left out.
func (d *Deployer) appEnvironment(fileValues map[string]string) map[string]string {
	env := make(map[string]string)
	for _, name := range d.ctx.Config().Env {
		if v, ok := fileValues[name]; ok {
			env[name] = v
			continue
		}
		if v, ok := d.lookupEnv(name); ok {
			env[name] = v
			continue
		}
		d.logger.Warn("app variable is not set", "name", name)
	}
	return env
}
