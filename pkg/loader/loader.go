// Package loader parses the domain, design, and query documents (§6) into
// dorm catalog-builder calls and Query values. Documents are YAML-over-JSON-
// tags, read with sigs.k8s.io/yaml the same way the teacher reads its
// structured config. The persisted catalog blob does not use these
// structs; it has its own encoding in the dorm package (serialize.go).
package loader

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/pthm/dorm"
)

// DomainDocument is the top-level shape of a domain file (§6).
type DomainDocument struct {
	Classes         []ClassDoc         `json:"classes"`
	Associations    []AssociationDoc   `json:"associations"`
	Generalizations []GeneralizationDoc `json:"generalizations"`
}

type ClassDoc struct {
	Name          string         `json:"name"`
	InstanceCount int64          `json:"instanceCount"`
	Superclass    string         `json:"superclass,omitempty"`
	Attributes    []AttributeDoc `json:"attributes,omitempty"`
}

type AttributeDoc struct {
	Name           string `json:"name"`
	DataType       string `json:"dataType"`
	Size           int    `json:"size,omitempty"`
	DistinctValues int64  `json:"distinctVals,omitempty"`
	IsIdentifier   bool   `json:"isIdentifier,omitempty"`
}

type AssociationDoc struct {
	Name string     `json:"name"`
	Ends [2]EndDoc  `json:"ends"`
}

type EndDoc struct {
	Name     string `json:"name"`
	Class    string `json:"class"`
	Role     string `json:"role"`
	MinMult  int    `json:"minMult"`
	MaxMult  int    `json:"maxMult"`
}

type GeneralizationDoc struct {
	Name       string          `json:"name"`
	Superclass string          `json:"superclass"`
	Disjoint   bool            `json:"disjoint"`
	Complete   bool            `json:"complete"`
	Subclasses []SubclassDoc   `json:"subclasses"`
}

type SubclassDoc struct {
	Class      string `json:"class"`
	Constraint string `json:"constraint,omitempty"`
}

// DesignDocument is the top-level shape of a design file (§6): a domain
// reference plus a list of Set/Struct hyperedges.
type DesignDocument struct {
	Domain     string          `json:"domain"`
	Hyperedges []HyperedgeDoc  `json:"hyperedges"`
}

type HyperedgeDoc struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"` // "Set" or "Struct"
	Contents []string `json:"contents,omitempty"`
	Elements []string `json:"elements,omitempty"`
	Anchor   []string `json:"anchor,omitempty"`
}

// QueryDocument is a list of queries (§6).
type QueryDocument []QueryDoc

type QueryDoc struct {
	Project []string `json:"project"`
	Pattern []string `json:"pattern"`
	Filter  string   `json:"filter,omitempty"`
}

// LoadDomain reads and parses a domain file into a DomainDocument. It makes
// no catalog-builder calls; BuildCatalog does that.
func LoadDomain(path string) (*DomainDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading domain file: %w", err)
	}
	var doc DomainDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", dorm.ErrParse, err)
	}
	return &doc, nil
}

// LoadDesign reads and parses a design file.
func LoadDesign(path string) (*DesignDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading design file: %w", err)
	}
	var doc DesignDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", dorm.ErrParse, err)
	}
	return &doc, nil
}

// LoadQueries reads and parses a query file.
func LoadQueries(path string) (QueryDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var doc QueryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", dorm.ErrParse, err)
	}
	return doc, nil
}

// BuildCatalog assembles a *dorm.Catalog from parsed domain and design
// documents. Classes are added first (so associations/generalizations can
// resolve class names), then associations, then generalizations, then the
// design hyperedges in two passes: Structs first (each may name atoms and
// Structs declared before it), then Sets (which may name any Struct in the
// document, since every Struct is registered by then).
func BuildCatalog(domain *DomainDocument, design *DesignDocument) (*dorm.Catalog, error) {
	b := dorm.NewCatalogBuilder()

	for _, c := range domain.Classes {
		attrs := make([]dorm.AttributeSpec, len(c.Attributes))
		for i, a := range c.Attributes {
			attrs[i] = dorm.AttributeSpec{
				Name: a.Name, DataType: a.DataType, Size: a.Size,
				DistinctValues: a.DistinctValues, IsIdentifier: a.IsIdentifier,
			}
		}
		b.AddClass(c.Name, c.InstanceCount, attrs, c.Superclass)
	}

	for _, assoc := range domain.Associations {
		ends := [2]dorm.EndSpec{}
		for i, e := range assoc.Ends {
			ends[i] = dorm.EndSpec{Name: e.Name, Class: e.Class, Role: e.Role, MinMult: e.MinMult, MaxMult: e.MaxMult}
		}
		if _, err := b.AddAssociation(assoc.Name, ends); err != nil {
			return nil, err
		}
	}

	for _, g := range domain.Generalizations {
		subs := make([]dorm.SubclassSpec, len(g.Subclasses))
		for i, s := range g.Subclasses {
			subs[i] = dorm.SubclassSpec{Class: s.Class, Constraint: s.Constraint}
		}
		if _, err := b.AddGeneralization(g.Name, g.Superclass, subs, g.Disjoint, g.Complete); err != nil {
			return nil, err
		}
	}

	if design != nil {
		for _, h := range design.Hyperedges {
			if h.Kind != "Struct" {
				continue
			}
			if _, err := b.AddStruct(h.Name, h.Elements, h.Anchor); err != nil {
				return nil, err
			}
		}
		for _, h := range design.Hyperedges {
			if h.Kind != "Set" {
				continue
			}
			if _, err := b.AddSet(h.Name, h.Contents); err != nil {
				return nil, err
			}
		}
	}

	return b.Build()
}
