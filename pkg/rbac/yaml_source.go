package rbac

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlRoleFile is the on-disk layout of a role definition file:
//
//	roles:
//	  - id: viewer
//	    name: Viewer
//	    permissions: [documents:view]
//	  - id: manager
//	    permissions: [documents:edit]
//	    inherits: [viewer]
type yamlRoleFile struct {
	Roles []Role `yaml:"roles"`
}

type yamlRoleSource struct {
	path string
	data []byte
}

// NewYAMLRoleSource reads role definitions from a YAML file on every Load.
func NewYAMLRoleSource(path string) RoleSource {
	return &yamlRoleSource{path: path}
}

// NewYAMLRoleSourceFromReader reads role definitions once from r.
func NewYAMLRoleSourceFromReader(r io.Reader) (RoleSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(ErrSourceLoad, err)
	}
	return &yamlRoleSource{data: data}, nil
}

func (s *yamlRoleSource) Load(ctx context.Context) ([]Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := s.data
	if s.path != "" {
		var err error
		if data, err = os.ReadFile(s.path); err != nil {
			return nil, errors.Join(ErrSourceLoad, err)
		}
	}

	var file yamlRoleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrSourceLoad, fmt.Errorf("decode roles: %w", err))
	}
	return file.Roles, nil
}
