// Package manifest reads ament package.xml files.
package manifest

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ament-gradle/ament-gradle/internal/domain"
)

// FileName is the manifest file every package carries at its root.
const FileName = "package.xml"

type xmlPackage struct {
	Name          string     `xml:"name"`
	Version       string     `xml:"version"`
	BuildDepends  []string   `xml:"build_depend"`
	Depends       []string   `xml:"depend"`
	ExecDepends   []string   `xml:"exec_depend"`
	RunDepends    []string   `xml:"run_depend"`
	BuildtoolDeps []string   `xml:"buildtool_depend"`
	Export        *xmlExport `xml:"export"`
}

type xmlExport struct {
	Tags []xmlTag `xml:",any"`
}

type xmlTag struct {
	XMLName xml.Name
	Content string `xml:",chardata"`
}

// Parse decodes a package.xml document.
func Parse(data []byte) (*domain.PackageManifest, error) {
	var p xmlPackage
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing package manifest: %w", err)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, fmt.Errorf("parsing package manifest: missing <name>")
	}

	m := &domain.PackageManifest{
		Name:    name,
		Version: strings.TrimSpace(p.Version),
	}
	// <depend> implies both build and exec dependency.
	m.BuildDepends = trimAll(p.BuildDepends, p.Depends)
	m.ExecDepends = trimAll(p.ExecDepends, p.RunDepends, p.Depends)

	if p.Export != nil {
		for _, tag := range p.Export.Tags {
			m.Exports = append(m.Exports, tag.XMLName.Local)
			if tag.XMLName.Local == "build_type" {
				m.BuildType = strings.TrimSpace(tag.Content)
			}
		}
	}
	return m, nil
}

// Load reads <dir>/package.xml.
func Load(dir string) (*domain.PackageManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func trimAll(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		for _, s := range l {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
