package preflight

import (
	"errors"
	"fmt"
	"strings"
)

// Environment the launched application itself reads at import time. The
// launcher never consumes these values; it only verifies they are present,
// since a worker that dies importing the application produces a crash loop
// instead of one legible error.
const (
	// EnvAppMongoHost is the database URI for the application's stores.
	// The application refuses to import without it.
	EnvAppMongoHost = "MPCONTRIBS_MONGO_HOST"

	// EnvAppDBNameSuffix selects the database name variant. Read
	// unconditionally by the application; unset aborts the import.
	EnvAppDBNameSuffix = "MAPI_DB_NAME_SUFFIX"
)

// CheckAppEnv verifies the application-side environment contract against
// the child environment the manager's workers will inherit. Both variables
// are required: the application raises on a missing database host and
// indexes the name suffix unconditionally.
func CheckAppEnv(env []string) error {
	var errs []error
	for _, key := range []string{EnvAppMongoHost, EnvAppDBNameSuffix} {
		if _, ok := lookupEnv(env, key); !ok {
			errs = append(errs, fmt.Errorf("%s not set: application workers cannot import without it", key))
		}
	}
	return errors.Join(errs...)
}

// AppMongoURI reports the database URI as the application will interpret
// it: a bare host is given the mongodb+srv:// scheme. The second return is
// false when the host variable is absent.
func AppMongoURI(env []string) (string, bool) {
	v, ok := lookupEnv(env, EnvAppMongoHost)
	if !ok || v == "" {
		return "", false
	}
	if !strings.Contains(v, "://") {
		v = "mongodb+srv://" + v
	}
	return v, true
}

func lookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):], true
		}
	}
	return "", false
}
