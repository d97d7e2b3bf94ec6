// Package scaffold writes a starter boardsync.yml for `boardsync init`.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/dyluth/boardsync/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Options fills the configuration template.
type Options struct {
	Workspace      string
	Backend        string
	RedisURL       string
	MongoURI       string
	MongoDatabase  string
	IdentityDBPath string
}

// DefaultOptions mirrors config.Default().
func DefaultOptions() Options {
	d := config.Default()
	return Options{
		Workspace:      d.Workspace,
		Backend:        d.Store.Backend,
		RedisURL:       d.Store.RedisURL,
		MongoURI:       "mongodb://localhost:27017",
		MongoDatabase:  "boardsync",
		IdentityDBPath: d.Identity.DBPath,
	}
}

// Initialize writes boardsync.yml into dir and returns its path.
// An existing file is only replaced when force is set.
func Initialize(dir string, opts Options, force bool) (string, error) {
	path := filepath.Join(dir, config.DefaultFileName)

	if force {
		if err := handleForce(path); err != nil {
			return "", err
		}
	} else if err := CheckExisting(dir); err != nil {
		return "", err
	}

	content, err := render(opts)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	// The generated file must load cleanly
	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("generated %s is invalid: %w", config.DefaultFileName, err)
	}

	return path, nil
}

func handleForce(path string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("⚠️  Removing existing %s...\n", filepath.Base(path))
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func render(opts Options) ([]byte, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/boardsync.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read boardsync.yml template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("failed to render boardsync.yml template: %w", err)
	}
	return buf.Bytes(), nil
}

// PrintSuccess prints the created file and next steps.
func PrintSuccess(path string) {
	fmt.Println("\n✅ Successfully initialized boardsync!")
	fmt.Println("\nCreated:")
	fmt.Printf("  ✓ %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point store.redis_url (or store.mongo_uri) at your server")
	fmt.Println("  2. Run 'boardsync login <USER_ID> --name \"Your Name\"'")
	fmt.Println("  3. Run 'boardsync boards' to list the workspace")
}
