package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"video-insight/schema"
)

type Class string

const (
	ClassQuota     Class = "quota"
	ClassRateLimit Class = "rate_limit"
	ClassTimeout   Class = "timeout"
	ClassOther     Class = "other"
)

// ClassifyError is the single place that inspects provider error text.
// Schema violations describe model output, so their text is never matched.
func ClassifyError(err error) Class {
	if err == nil {
		return ClassOther
	}
	if errors.As(err, new(*schema.ValidationError)) {
		return ClassOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	var gv genai.APIError
	var gp *genai.APIError
	switch {
	case errors.As(err, &gv):
		if c := classifyStatus(gv.Code, gv.Status+" "+gv.Message); c != ClassOther {
			return c
		}
	case errors.As(err, &gp) && gp != nil:
		if c := classifyStatus(gp.Code, gp.Status+" "+gp.Message); c != ClassOther {
			return c
		}
	}

	var oe *openai.Error
	if errors.As(err, &oe) && oe != nil {
		if c := classifyStatus(oe.StatusCode, oe.Code+" "+oe.Type+" "+oe.Message); c != ClassOther {
			return c
		}
	}

	return classifyText(err.Error())
}

// ShouldFailover reports whether retrying the same provider is pointless.
func ShouldFailover(err error) bool {
	c := ClassifyError(err)
	return c == ClassQuota || c == ClassRateLimit
}

func classifyStatus(code int, text string) Class {
	switch code {
	case http.StatusTooManyRequests:
		if c := classifyText(text); c == ClassQuota {
			return c
		}
		return ClassRateLimit
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return ClassTimeout
	}
	return classifyText(text)
}

func classifyText(msg string) Class {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "insufficient_quota"),
		strings.Contains(m, "quota"),
		strings.Contains(m, "resource_exhausted"):
		return ClassQuota
	case strings.Contains(m, "429"),
		strings.Contains(m, "rate limit"),
		strings.Contains(m, "rate_limit"),
		strings.Contains(m, "too many requests"):
		return ClassRateLimit
	case strings.Contains(m, "deadline exceeded"),
		strings.Contains(m, "timeout"),
		strings.Contains(m, "timed out"):
		return ClassTimeout
	}
	return ClassOther
}
