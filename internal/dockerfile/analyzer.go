package dockerfile

import (
	"fmt"
	"regexp"
	"strings"
)

// Analysis is the result of the copy/install ordering check on a Dockerfile.
// Line numbers are 1-based; 0 means the instruction was not found.
type Analysis struct {
	Valid           bool   `json:"is_valid"`
	CopyPackageLine int    `json:"copy_package_line,omitempty"`
	InstallLine     int    `json:"npm_install_line,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

var (
	// Matches literal manifests (package.json, package-lock.json) as well as
	// glob forms like "COPY package*.json ./".
	copyPackageRe = regexp.MustCompile(`(?i)^\s*COPY\s+.*package[^/\s]*\.json`)
	npmInstallRe  = regexp.MustCompile(`(?i)^\s*RUN\s+.*npm\s+(install|ci)\b`)
)

// Analyze checks a single ordering invariant: the dependency manifest must be
// copied into the image before npm install/ci runs. Dockerfiles that break
// this build against a stale (or empty) node_modules layer and the failure
// only shows up at container start. Nothing else about the Dockerfile is
// judged here.
func Analyze(content string) Analysis {
	a := Analysis{}

	for i, line := range strings.Split(content, "\n") {
		n := i + 1
		if a.CopyPackageLine == 0 && copyPackageRe.MatchString(line) {
			a.CopyPackageLine = n
		}
		if a.InstallLine == 0 && npmInstallRe.MatchString(line) {
			a.InstallLine = n
		}
	}

	switch {
	case a.CopyPackageLine == 0:
		a.Detail = "no COPY instruction references package.json; the manifest copy step is missing"
	case a.InstallLine == 0:
		// No npm install at all: the image may install dependencies some
		// other way (prebuilt node_modules, different package manager).
		a.Valid = true
		a.Detail = fmt.Sprintf("package.json copied on line %d; no npm install step found", a.CopyPackageLine)
	case a.CopyPackageLine < a.InstallLine:
		a.Valid = true
		a.Detail = fmt.Sprintf("package.json copied on line %d before npm install on line %d", a.CopyPackageLine, a.InstallLine)
	default:
		a.Detail = fmt.Sprintf("npm install on line %d runs before package.json is copied on line %d", a.InstallLine, a.CopyPackageLine)
	}

	return a
}
