package seal

import (
	"os/exec"
	"path/filepath"
	"strings"
)

// gitInfo is the best-effort version-control state captured into a seal.
type gitInfo struct {
	head  string
	state string // "clean" or "dirty"
}

// probeGit inspects the repository containing target. It returns nil when
// git is unavailable or target is outside a repository; sealing never fails
// because of git.
func probeGit(target string) *gitInfo {
	if _, err := exec.LookPath("git"); err != nil {
		return nil
	}
	dir := filepath.Dir(target)
	if err := exec.Command("git", "-C", dir, "rev-parse", "--git-dir").Run(); err != nil {
		return nil
	}

	g := &gitInfo{state: "clean"}
	if out, err := exec.Command("git", "-C", dir, "rev-parse", "HEAD").Output(); err == nil {
		g.head = strings.TrimSpace(string(out))
	}
	if out, err := exec.Command("git", "-C", dir, "status", "--porcelain").Output(); err == nil {
		if len(strings.TrimSpace(string(out))) > 0 {
			g.state = "dirty"
		}
	}
	return g
}
