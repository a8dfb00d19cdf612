package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingops/internal/supabase/supabasetest"
)

func newScriptFixture(t *testing.T) (*supabasetest.Server, *ScriptService) {
	t.Helper()
	fake := supabasetest.New(t)
	fake.CreateTable("scripts")
	svc := NewScriptService(fake.Backend(), 0)
	quiet := logrus.New()
	quiet.SetOutput(&bytes.Buffer{})
	svc.SetLogger(quiet)
	return fake, svc
}

func TestScriptStoreAndList(t *testing.T) {
	fake, svc := newScriptFixture(t)
	path := filepath.Join(t.TempDir(), "check_tables.sh")
	require.NoError(t, os.WriteFile(path, []byte("echo ok\n"), 0o644))

	stored, err := svc.Store(context.Background(), ScriptInput{Path: path, Category: "maintenance"})
	require.NoError(t, err)
	assert.Equal(t, "check_tables", stored.Name)
	assert.Equal(t, "bash", stored.Language)

	_, err = svc.Store(context.Background(), ScriptInput{Path: path, Category: "maintenance", Description: "v2"})
	require.NoError(t, err)
	assert.Len(t, fake.Rows("scripts"), 1)

	list, err := svc.List(context.Background(), "maintenance")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "v2", list[0].Description)

	list, err = svc.List(context.Background(), "other")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestScriptStore_UnknownExtension(t *testing.T) {
	_, svc := newScriptFixture(t)
	path := filepath.Join(t.TempDir(), "tool.rb")
	require.NoError(t, os.WriteFile(path, []byte("puts 1"), 0o644))

	_, err := svc.Store(context.Background(), ScriptInput{Path: path})
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
}

func TestScriptRun(t *testing.T) {
	fake, svc := newScriptFixture(t)
	fake.Seed("scripts", map[string]interface{}{
		"name": "greet", "category": "demo", "language": "sh", "is_active": true,
		"content": "echo \"hello $1\"\necho warn >&2\n",
	})

	var stdout, stderr bytes.Buffer
	err := svc.Run(context.Background(), "greet", "", []string{"world"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", stdout.String())
	assert.Equal(t, "warn\n", stderr.String())
}

func TestScriptRun_ExitStatus(t *testing.T) {
	fake, svc := newScriptFixture(t)
	fake.Seed("scripts", map[string]interface{}{
		"name": "fail", "category": "demo", "language": "sh", "is_active": true, "content": "exit 3\n",
	})

	err := svc.Run(context.Background(), "fail", "demo", nil, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestScriptRun_NotFoundAndUnsupported(t *testing.T) {
	fake, svc := newScriptFixture(t)
	fake.Seed("scripts",
		map[string]interface{}{"name": "rb", "category": "demo", "language": "ruby", "is_active": true, "content": "puts 1"},
		map[string]interface{}{"name": "off", "category": "demo", "language": "sh", "is_active": false, "content": "echo"},
	)

	err := svc.Run(context.Background(), "missing", "", nil, nil, nil)
	assert.True(t, errors.Is(err, ErrScriptNotFound))

	err = svc.Run(context.Background(), "off", "", nil, nil, nil)
	assert.True(t, errors.Is(err, ErrScriptNotFound), "inactive scripts are not runnable")

	err = svc.Run(context.Background(), "greet", "wrong-category", nil, nil, nil)
	assert.True(t, errors.Is(err, ErrScriptNotFound))

	err = svc.Run(context.Background(), "rb", "", nil, nil, nil)
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
}

func TestScriptRun_NameWithSeparators(t *testing.T) {
	fake, svc := newScriptFixture(t)
	fake.Seed("scripts", map[string]interface{}{
		"name": "ops/nightly*", "category": "demo", "language": "sh", "is_active": true,
		"content": "echo done\n",
	})

	var stdout bytes.Buffer
	err := svc.Run(context.Background(), "ops/nightly*", "", nil, &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "done\n", stdout.String())
	assert.Equal(t, "ops_nightly_", tempNameReplacer.Replace("ops/nightly*"))
}
