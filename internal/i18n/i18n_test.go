package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func loadBundled(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load(Locales(), "pt", []string{"pt", "en"})
	require.NoError(t, err)
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := loadBundled(t)

	require.Equal(t, "en", b.Resolve("pt;q=0.8, en;q=0.9"))
	require.Equal(t, "pt", b.Resolve("pt-BR,pt;q=0.9,en;q=0.5"))
	require.Equal(t, "en", b.Resolve("en-US"))
}

func TestResolveFallsBackForUnknownLanguages(t *testing.T) {
	b := loadBundled(t)

	require.Equal(t, "pt", b.Resolve(""))
	require.Equal(t, "pt", b.Resolve("ja"))
	require.Equal(t, "pt", b.Resolve(";;;"))
}

func TestTranslateFlattensNestedKeys(t *testing.T) {
	b := loadBundled(t)

	require.Equal(t, "Email é obrigatório", b.T("pt", "signin.email.required"))
	require.Equal(t, "Email is required", b.T("en", "signin.email.required"))
	require.Equal(t, "Credenciais inválidas. Por favor, tente novamente.", b.For("pt").T("signin.auth_error"))
}

func TestTranslateFallsBack(t *testing.T) {
	fsys := fstest.MapFS{
		"pt.yaml": {Data: []byte("signin:\n  submit: Entrar\n  only_pt: só aqui\n")},
		"en.yaml": {Data: []byte("signin:\n  submit: Sign in\n")},
	}
	b, err := Load(fsys, "pt", []string{"pt", "en"})
	require.NoError(t, err)

	require.Equal(t, "só aqui", b.T("en", "signin.only_pt"))
	require.Equal(t, "missing.key", b.T("en", "missing.key"))
	require.Equal(t, []string{"en", "pt"}, b.Supported())
}

func TestLoadRequiresFallbackCatalog(t *testing.T) {
	fsys := fstest.MapFS{
		"en.yaml": {Data: []byte("signin:\n  submit: Sign in\n")},
	}
	_, err := Load(fsys, "pt", []string{"pt", "en"})
	require.Error(t, err)
}

func TestLoadSkipsMissingOptionalCatalog(t *testing.T) {
	fsys := fstest.MapFS{
		"pt.yaml": {Data: []byte("signin:\n  submit: Entrar\n")},
	}
	b, err := Load(fsys, "pt", []string{"pt", "en"})
	require.NoError(t, err)
	require.Equal(t, []string{"pt"}, b.Supported())
	require.Equal(t, "pt", b.Resolve("en"))
}
