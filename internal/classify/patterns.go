package classify

import (
	"path"
	"regexp"
	"strings"
)

var (
	devopsKeywords   = regexp.MustCompile(`(?i)\b(deploy(s|ed|ment)?|ci|cd|ci/cd|pipelines?|docker|dockerfile|compose|kubernetes|k8s|helm|terraform|infra(structure)?|github actions|workflows?|release|ansible|nginx|provision(ing)?)\b`)
	debugKeywords    = regexp.MustCompile(`(?i)\b(fix(es|ed|ing)?|bug(s|fix)?|hotfix|crash(es|ed|ing)?|errors?|exception|regression|broken|issue)\b`)
	refactorKeywords = regexp.MustCompile(`(?i)\b(refactor(s|ed|ing)?|renam(e|es|ed|ing)|clean(s|ed|ing|up)?|extract(s|ed|ing)?|simplif(y|ies|ied)|restructur(e|ed|ing)|reorganiz(e|ed|ing)|tidy)\b`)
	reviewKeywords   = regexp.MustCompile(`(?i)\b(review(s|ed|ing)?|pull request|PR #?\d*|code review|LGTM|approve[ds]?|feedback on)\b`)

	testFile = regexp.MustCompile(`(?i)(_test\.go$|\.test\.[jt]sx?$|\.spec\.[jt]sx?$|(^|/)test_[^/]+\.py$|_test\.py$|(^|/)(tests?|__tests__|spec)/|Test\.java$|_spec\.rb$)`)
	docFile  = regexp.MustCompile(`(?i)((^|/)(README|CHANGELOG|CONTRIBUTING|LICENSE|NOTICE|AUTHORS)([^/]*)$|\.(md|mdx|rst|adoc)$|(^|/)docs?/)`)
)

var infraFileNames = []string{
	"dockerfile", "docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml",
	".gitlab-ci.yml", "jenkinsfile", "makefile", "procfile", "skaffold.yaml", "chart.yaml",
}

func isTestFile(p string) bool {
	return testFile.MatchString(p)
}

func isDocFile(p string) bool {
	return docFile.MatchString(p)
}

func isInfraFile(p string) bool {
	p = strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
	base := path.Base(p)
	for _, name := range infraFileNames {
		if base == name {
			return true
		}
	}
	if strings.HasPrefix(base, "dockerfile.") || strings.HasSuffix(base, ".dockerfile") {
		return true
	}
	switch path.Ext(base) {
	case ".tf", ".tfvars", ".hcl":
		return true
	}
	return strings.Contains(p, ".github/workflows/") ||
		strings.Contains(p, "/k8s/") || strings.HasPrefix(p, "k8s/") ||
		strings.Contains(p, "/helm/") || strings.HasPrefix(p, "helm/")
}
