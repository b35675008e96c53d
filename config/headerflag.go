package config

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// headerFlag collects header names from a repeated flag, in canonical
// form.
type headerFlag []string

func canonicalHeader(name string) (string, error) {
	if !httpguts.ValidHeaderFieldName(name) {
		return "", fmt.Errorf("invalid header name: %q", name)
	}

	return http.CanonicalHeaderKey(name), nil
}

func (f *headerFlag) String() string {
	return strings.Join(*f, " ")
}

func (f *headerFlag) Set(value string) error {
	name, err := canonicalHeader(value)
	if err != nil {
		return err
	}

	*f = append(*f, name)
	return nil
}

func (f *headerFlag) UnmarshalYAML(unmarshal func(any) error) error {
	var values []string
	if err := unmarshal(&values); err != nil {
		return err
	}

	names := make(headerFlag, 0, len(values))
	for _, v := range values {
		if err := names.Set(v); err != nil {
			return err
		}
	}

	*f = names
	return nil
}
