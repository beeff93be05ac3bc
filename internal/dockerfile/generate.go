package dockerfile

import (
	"fmt"
	"strings"
)

// DefaultPort is the exposed port used when the caller has no better signal.
// Matches the Node.js convention and the generated recipe below.
const DefaultPort = 3000

// Generate returns a known-good Node.js Dockerfile exposing the given port.
// Used when the repository has no Dockerfile at all, or when Fix decides the
// existing one is not worth salvaging.
func Generate(port int) string {
	if port <= 0 {
		port = DefaultPort
	}
	return fmt.Sprintf(`FROM node:20-alpine

WORKDIR /app

COPY package*.json ./

RUN npm ci --omit=dev || npm install --omit=dev

COPY . .

RUN npm run build || true

EXPOSE %d

ENV NODE_ENV=production
ENV PORT=%d

CMD ["npm", "start"]
`, port, port)
}

// GenerateDockerignore returns the companion .dockerignore committed
// alongside a generated or fixed Dockerfile.
func GenerateDockerignore() string {
	return `node_modules
.git
.env
.env.*
dist
build
*.log
.DS_Store
`
}

// Fix returns a corrected version of content. When the only defect is the
// install/copy ordering it rewrites the recipe in place, moving the first
// manifest COPY above the first npm install and keeping every other line
// untouched. Recipes it cannot repair structurally are replaced wholesale
// with Generate output.
func Fix(content string, port int) string {
	a := Analyze(content)
	if a.Valid {
		return content
	}
	if a.CopyPackageLine == 0 || a.InstallLine == 0 {
		return Generate(port)
	}

	lines := strings.Split(content, "\n")
	copyIdx := a.CopyPackageLine - 1
	installIdx := a.InstallLine - 1
	if copyIdx >= len(lines) || installIdx >= len(lines) {
		return Generate(port)
	}

	copyLine := lines[copyIdx]
	reordered := make([]string, 0, len(lines))
	for i, line := range lines {
		if i == copyIdx {
			continue
		}
		if i == installIdx {
			reordered = append(reordered, copyLine)
		}
		reordered = append(reordered, line)
	}

	fixed := strings.Join(reordered, "\n")
	if !Analyze(fixed).Valid {
		return Generate(port)
	}
	return fixed
}
