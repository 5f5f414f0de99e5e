package prompt

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"

	"research_assistant/pkg/core/utils"

	"github.com/rs/zerolog"
)

//go:embed defaults/*.hjson
var defaultFS embed.FS

// LoadDefaults registers the prompts compiled into the binary.
func LoadDefaults(r *Registry) error {
	sub, err := fs.Sub(defaultFS, "defaults")
	if err != nil {
		return err
	}
	return loadPrompts(r, sub, "research")
}

// LoadFromDirectory loads every .hjson and .json prompt below dir, overriding
// prompts with the same ID. Expected structure:
//
//	dir/
//	  research/
//	    document.hjson
//	    synthesis.hjson
func LoadFromDirectory(ctx context.Context, r *Registry, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("prompts directory not found: %s", dir)
	}
	before := r.Count()
	if err := loadPrompts(r, os.DirFS(dir), ""); err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	zerolog.Ctx(ctx).Info().
		Str("dir", dir).
		Int("prompts", r.Count()).
		Int("added", r.Count()-before).
		Msg("prompt overrides loaded")
	return nil
}

func loadPrompts(r *Registry, fsys fs.FS, category string) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := path.Ext(p)
		if d.IsDir() || (ext != ".json" && ext != ".hjson") {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		var pt PromptTemplate
		if _, err := utils.SmartParse(string(data), &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}

		rel := strings.TrimSuffix(p, ext)
		if category != "" {
			rel = category + "/" + rel
		}
		// Auto-generate ID from path if not specified
		if pt.ID == "" {
			pt.ID = strings.ReplaceAll(rel, "/", ".")
		}
		if pt.Category == "" {
			pt.Category = "default"
			if i := strings.IndexByte(rel, '/'); i > 0 {
				pt.Category = rel[:i]
			}
		}

		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", p, err)
		}
		return nil
	})
}

func render(name, body string, ctx *PromptExecutionContext) (string, error) {
	if body == "" {
		return "", nil
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.Variables); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// RenderUserPrompt executes the user prompt template with the given context
func RenderUserPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	return render(pt.ID+".user", pt.UserPromptTmpl, ctx)
}

// RenderSystemPrompt executes the system prompt template with the given context
func RenderSystemPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	return render(pt.ID+".system", pt.SystemPrompt, ctx)
}

// Render looks up a prompt and renders both of its templates.
func (r *Registry) Render(id string, ctx *PromptExecutionContext) (system, user string, err error) {
	pt, err := r.GetPrompt(id)
	if err != nil {
		return "", "", err
	}
	if system, err = RenderSystemPrompt(pt, ctx); err != nil {
		return "", "", fmt.Errorf("%s: %w", id, err)
	}
	if user, err = RenderUserPrompt(pt, ctx); err != nil {
		return "", "", fmt.Errorf("%s: %w", id, err)
	}
	return system, user, nil
}
