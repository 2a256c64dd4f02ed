package scop

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Exported is the machine-readable form of a Scop.
type Exported struct {
	Name       string         `yaml:"name"`
	Func       string         `yaml:"func,omitempty"`
	Context    string         `yaml:"context"`
	Params     []string       `yaml:"params,omitempty"`
	Statements []ExportedStmt `yaml:"statements"`
}

// ExportedStmt is a statement of an Exported Scop.
type ExportedStmt struct {
	Name      string           `yaml:"name"`
	Iterators []string         `yaml:"iterators,omitempty"`
	Domain    string           `yaml:"domain"`
	Schedule  string           `yaml:"schedule"`
	Accesses  []ExportedAccess `yaml:"accesses,omitempty"`
}

// ExportedAccess is an access of an ExportedStmt.
type ExportedAccess struct {
	Kind     string `yaml:"kind"`
	Relation string `yaml:"relation"`
}

// Export returns s in machine-readable form.
func (s *Scop) Export() *Exported {
	ex := &Exported{
		Name:    s.NameStr(),
		Context: s.context.String(),
	}
	if fn := s.Func(); fn != nil {
		ex.Func = fn.String()
	}
	for _, p := range s.params {
		id, _ := s.IDForParam(p)
		ex.Params = append(ex.Params, id.Name+" = "+p.String())
	}
	for _, st := range s.stmts {
		es := ExportedStmt{
			Name:     st.BaseName(),
			Domain:   st.domain.String(),
			Schedule: st.scattering.String(),
		}
		// Index variables by dimension, or the loop if it has none.
		for i := 0; i < st.NumIterators(); i++ {
			if phi := st.IVForDimension(i); phi != nil {
				es.Iterators = append(es.Iterators, phi.Name())
				continue
			}
			es.Iterators = append(es.Iterators, st.LoopForDimension(i).NameStr())
		}
		for _, m := range st.accesses {
			es.Accesses = append(es.Accesses, ExportedAccess{
				Kind:     strings.ToLower(m.kind.String()),
				Relation: m.rel.String(),
			})
		}
		ex.Statements = append(ex.Statements, es)
	}
	return ex
}

// WriteYAML writes the exported form of s to w.
func (s *Scop) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s.Export()); err != nil {
		return errors.Wrapf(err, "cannot export scop %s", s.NameStr())
	}
	return enc.Close()
}
