package preflight

import (
	"strings"
	"testing"
)

func TestCheckAppEnv(t *testing.T) {
	env := []string{
		"PATH=/usr/bin",
		"MPCONTRIBS_MONGO_HOST=db.example.net",
		"MAPI_DB_NAME_SUFFIX=prod",
	}
	if err := CheckAppEnv(env); err != nil {
		t.Errorf("complete environment rejected: %v", err)
	}
}

func TestCheckAppEnv_Missing(t *testing.T) {
	cases := []struct {
		name    string
		env     []string
		missing []string
	}{
		{
			"no db host",
			[]string{"MAPI_DB_NAME_SUFFIX=prod"},
			[]string{EnvAppMongoHost},
		},
		{
			"no name suffix",
			[]string{"MPCONTRIBS_MONGO_HOST=db.example.net"},
			[]string{EnvAppDBNameSuffix},
		},
		{
			"nothing set",
			[]string{"PATH=/usr/bin"},
			[]string{EnvAppMongoHost, EnvAppDBNameSuffix},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckAppEnv(tc.env)
			if err == nil {
				t.Fatal("expected error")
			}
			for _, key := range tc.missing {
				if !strings.Contains(err.Error(), key) {
					t.Errorf("error should name %s: %v", key, err)
				}
			}
		})
	}
}

func TestCheckAppEnv_EmptyValueIsPresent(t *testing.T) {
	// Presence is the contract; the application accepts empty strings.
	env := []string{
		"MPCONTRIBS_MONGO_HOST=db.example.net",
		"MAPI_DB_NAME_SUFFIX=",
	}
	if err := CheckAppEnv(env); err != nil {
		t.Errorf("set-but-empty value rejected: %v", err)
	}
}

func TestAppMongoURI(t *testing.T) {
	cases := []struct {
		name string
		env  []string
		uri  string
		ok   bool
	}{
		{
			"bare host gets srv scheme",
			[]string{"MPCONTRIBS_MONGO_HOST=db.example.net"},
			"mongodb+srv://db.example.net", true,
		},
		{
			"explicit scheme preserved",
			[]string{"MPCONTRIBS_MONGO_HOST=mongodb://db.example.net:27017"},
			"mongodb://db.example.net:27017", true,
		},
		{
			"absent",
			[]string{"PATH=/usr/bin"},
			"", false,
		},
		{
			"empty",
			[]string{"MPCONTRIBS_MONGO_HOST="},
			"", false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uri, ok := AppMongoURI(tc.env)
			if uri != tc.uri || ok != tc.ok {
				t.Errorf("AppMongoURI = %q, %v; want %q, %v", uri, ok, tc.uri, tc.ok)
			}
		})
	}
}
