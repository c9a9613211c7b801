package validation

import (
	"context"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

// PositiveInt fails unless raw parses to an integer >= 1.
func PositiveInt(raw string) Check {
	return func(ctx context.Context) (*Failure, error) {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			return BadInput("must be a positive integer"), nil
		}

		return nil, nil
	}
}

// Exists parses raw as an id and runs a read-only existence lookup,
// producing a 404-class failure when the entity is absent. It assumes a
// preceding PositiveInt check, so a parse error here is an internal fault.
func Exists(raw string, find func(ctx context.Context, id int64) (bool, error)) Check {
	return func(ctx context.Context) (*Failure, error) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}

		found, err := find(ctx, id)
		if err != nil {
			return nil, err
		}

		if !found {
			return NotFound(), nil
		}

		return nil, nil
	}
}

// ExistsBy is Exists for lookups that already captured their key.
func ExistsBy(find func(ctx context.Context) (bool, error)) Check {
	return func(ctx context.Context) (*Failure, error) {
		found, err := find(ctx)
		if err != nil {
			return nil, err
		}

		if !found {
			return NotFound(), nil
		}

		return nil, nil
	}
}

// Unique produces a 400-class failure with the given message when the
// lookup reports the value as already taken.
func Unique(taken func(ctx context.Context) (bool, error), message string) Check {
	return func(ctx context.Context) (*Failure, error) {
		exists, err := taken(ctx)
		if err != nil {
			return nil, err
		}

		if exists {
			return BadInput(message), nil
		}

		return nil, nil
	}
}

func Email(value string) Check {
	return func(ctx context.Context) (*Failure, error) {
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return BadInput("must be a valid email address"), nil
		}

		return nil, nil
	}
}

func MinString(value string, min int) Check {
	return func(ctx context.Context) (*Failure, error) {
		if len(value) < min {
			return BadInput("must be a string of at least " + strconv.Itoa(min) + " characters"), nil
		}

		return nil, nil
	}
}

func NonEmpty(value string) Check {
	return func(ctx context.Context) (*Failure, error) {
		if strings.TrimSpace(value) == "" {
			return BadInput("must be a non-empty string"), nil
		}

		return nil, nil
	}
}

func PositiveFloat(value float64) Check {
	return func(ctx context.Context) (*Failure, error) {
		if value <= 0 {
			return BadInput("must be a positive float"), nil
		}

		return nil, nil
	}
}

func URL(value string) Check {
	return func(ctx context.Context) (*Failure, error) {
		u, err := url.ParseRequestURI(value)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return BadInput("must be a valid URL"), nil
		}

		return nil, nil
	}
}

// Digits fails unless value is exactly n characters, all numeric.
func Digits(value string, n int) Check {
	return func(ctx context.Context) (*Failure, error) {
		failure := BadInput("must be " + strconv.Itoa(n) + " digits")

		if len(value) != n {
			return failure, nil
		}

		for _, r := range value {
			if !unicode.IsDigit(r) {
				return failure, nil
			}
		}

		return nil, nil
	}
}

// ImageURL probes the URL with a bounded HEAD request and requires an
// image/* content type. Every network problem, including the timeout, is a
// validation failure (fail closed), never an internal error.
func ImageURL(client *http.Client, rawURL string) Check {
	return func(ctx context.Context) (*Failure, error) {
		failure := BadInput("must be a valid URL pointing to an image")

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
		if err != nil {
			return failure, nil
		}

		resp, err := client.Do(req)
		if err != nil {
			return failure, nil
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return failure, nil
		}

		if !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
			return failure, nil
		}

		return nil, nil
	}
}
