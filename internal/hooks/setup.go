package hooks

import (
	"fmt"
	"path"
	"strings"

	"github.com/ament-gradle/ament-gradle/internal/domain"
)

// LocalSetup writes share/<pkg>/local_setup.* files that source a package's
// environment hooks in order. It implements ports.SetupExpander.
type LocalSetup struct {
	Materializer
}

func NewLocalSetup(goos string) *LocalSetup {
	return &LocalSetup{Materializer: Materializer{GOOS: goos}}
}

func (s *LocalSetup) shells() []string {
	if s.windows() {
		return []string{"bat"}
	}
	return []string{"sh", "bash", "zsh"}
}

// Paths lists the setup files Expand writes, relative to the build space.
func (s *LocalSetup) Paths(bc *domain.BuildContext) []string {
	var out []string
	for _, sh := range s.shells() {
		out = append(out, path.Join("share", bc.PackageName, "local_setup."+sh))
	}
	return out
}

func (s *LocalSetup) Expand(bc *domain.BuildContext, hooks []string) ([]string, error) {
	var lines []string
	for _, h := range hooks {
		if !strings.HasPrefix(h, EnvironmentDir(bc.PackageName)+"/") {
			return nil, fmt.Errorf("hook %s is outside the environment directory of %s", h, bc.PackageName)
		}
		if s.windows() {
			lines = append(lines, fmt.Sprintf(`call "%s\%s"`, s.PrefixMarker(), strings.ReplaceAll(h, "/", `\`)))
		} else {
			lines = append(lines, fmt.Sprintf(`. "%s/%s"`, s.PrefixMarker(), h))
		}
	}

	subs := map[string]string{
		"PACKAGE":       bc.PackageName,
		"INSTALL_SPACE": bc.InstallSpace,
		"HOOKS":         strings.Join(lines, "\n"),
	}

	var written []string
	for i, sh := range s.shells() {
		content, err := Render("local_setup."+sh+".in", subs)
		if err != nil {
			return written, err
		}
		rel := s.Paths(bc)[i]
		if err := writeFile(bc.BuildSpace, rel, content); err != nil {
			return written, err
		}
		written = append(written, rel)
	}
	return written, nil
}
