package fetcher

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/kailas-cloud/fetchcascade/internal/adapter"
	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
)

// validationOutcome is the gate that distinguishes "the adapter produced
// bytes" from "the bytes satisfy the contract" (spec's validation, §4.4).
type validationOutcome struct {
	passed bool
	checks []string
	failed []string
}

// validateOutput applies a pattern's ValidationSpec (when the attempt went
// through a matched pattern) and the caller's own Verification on top.
func validateOutput(out adapter.Output, spec *domainpattern.ValidationSpec, verify *fetch.Verification) validationOutcome {
	var v validationOutcome
	fields := map[string]string{"title": out.Title, "body": out.Text}
	for k, val := range out.Structured {
		fields[k] = val
	}

	if spec != nil {
		for _, name := range spec.RequiredFields {
			check := "required_field:" + name
			v.checks = append(v.checks, check)
			if strings.TrimSpace(fields[name]) == "" {
				v.failed = append(v.failed, check)
			}
		}
		if spec.MinContentLength > 0 {
			check := "min_content_length"
			v.checks = append(v.checks, check)
			if len(out.Text) < spec.MinContentLength {
				v.failed = append(v.failed, check)
			}
		}
	}

	if verify != nil {
		for _, needle := range verify.MustContain {
			check := "must_contain:" + needle
			v.checks = append(v.checks, check)
			if !strings.Contains(out.Text, needle) {
				v.failed = append(v.failed, check)
			}
		}
		for _, pat := range verify.RegexPatterns {
			check := "regex:" + pat
			v.checks = append(v.checks, check)
			re, err := regexp.Compile(pat)
			if err != nil || !re.MatchString(out.Text) {
				v.failed = append(v.failed, check)
			}
		}
		if verify.Mode == fetch.VerifyThorough {
			check := "thorough_table_shape"
			v.checks = append(v.checks, check)
			if len(out.Tables) == 0 {
				v.failed = append(v.failed, check)
			}
		}
	}

	v.passed = len(v.failed) == 0
	return v
}

// coarseURLPattern derives the predictor's per-key bucket for a URL: the
// hostname's first path segment kept literal, deeper segments collapsed,
// matching the same "coarse shape" idea the registry uses when inferring a
// URL regex (internal/usecase/registry/infer.go's inferURLRegex).
func coarseURLPattern(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "/"
	}
	if len(segments) == 1 {
		return "/" + segments[0]
	}
	return "/" + segments[0] + "/*"
}
