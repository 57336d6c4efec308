package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dochatty/vulpes/cmd/vulpes/internal/build"
	"github.com/dochatty/vulpes/redact"
	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
	"github.com/dochatty/vulpes/redact/receipt"
	"github.com/dochatty/vulpes/redact/replace"
)

// RedactCmd implements the batch redaction command.
type RedactCmd struct {
	Input   string `arg:"" type:"existingfile" help:"Input document"`
	Policy  string `name:"policy" type:"existingfile" optional:"" help:"Policy file (JSON or YAML); defaults to VULPES_POLICY_DEFAULT or HIPAA_STRICT"`
	Output  string `name:"output" short:"o" optional:"" help:"Write redacted text here (stdout when omitted)"`
	Receipt string `name:"receipt" optional:"" help:"Write a .red trust bundle here"`
	Session string `name:"session" optional:"" help:"Session id: documents sharing it reuse replacement tokens"`
	Store   string `name:"store" type:"path" optional:"" help:"bbolt file persisting the session replacement table across runs (requires --session)"`
}

// Run executes the redact command.
func (c *RedactCmd) Run(cfg *GlobalConfig) error {
	logger := log.Default()

	pol, err := resolvePolicy(c.Policy)
	if err != nil {
		return err
	}
	if c.Receipt != "" {
		pol = pol.Clone()
		pol.EmitReceipt = true
	}
	if c.Store != "" && c.Session == "" {
		return fmt.Errorf("--store requires --session")
	}

	data, err := os.ReadFile(c.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	logger.Info("redacting", "input", c.Input, "bytes", len(data), "profile", pol.Profile)

	engine := redact.NewEngine()

	// The session scope reuses tokens across documents; adding a store
	// file upgrades it to the persisted policy scope, restoring the
	// table before the run and saving it back after.
	var rctx *phi.Context
	var store *replace.Store
	if c.Session != "" {
		scope := phi.ScopeSession
		if c.Store != "" {
			store, err = replace.OpenStore(c.Store)
			if err != nil {
				return err
			}
			defer store.Close()
			state, err := store.Load(c.Session)
			if err != nil {
				return err
			}
			engine.Replacer().Restore(c.Session, state)
			scope = phi.ScopePolicy
			logger.Debug("replacement table restored", "store", c.Store, "session", c.Session, "entries", len(state.Tokens))
		}
		rctx = phi.NewContext(c.Session, uuid.NewString(), scope)
	}

	result, err := engine.Redact(context.Background(), string(data), pol, rctx)
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.Save(c.Session, engine.Replacer().Export(c.Session)); err != nil {
			return err
		}
	}
	for _, w := range result.Warnings {
		logger.Warn(w)
	}

	if c.Output != "" {
		if err := os.WriteFile(c.Output, []byte(result.Text), 0o600); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	} else {
		fmt.Print(result.Text)
	}

	if c.Receipt != "" {
		if result.Receipt == nil {
			return fmt.Errorf("%w: receipt requested but not produced", receipt.ErrReceiptFailure)
		}
		f, err := os.OpenFile(c.Receipt, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("open receipt file: %w", err)
		}
		defer f.Close()
		if err := receipt.EncodeBundle(f, result.Receipt, []byte(result.Text)); err != nil {
			return err
		}
		logger.Info("receipt written", "path", c.Receipt, "merkleRoot", result.Receipt.MerkleRoot)
	}

	logBreakdown(logger, result)
	return nil
}

func logBreakdown(logger *log.Logger, result *redact.Result) {
	types := make([]string, 0, len(result.Breakdown))
	for ft := range result.Breakdown {
		types = append(types, string(ft))
	}
	sort.Strings(types)
	for _, ft := range types {
		logger.Info("redacted", "category", ft, "count", result.Breakdown[phi.FilterType(ft)])
	}
	if result.Partial {
		logger.Warn("result is partial: soft deadline expired before every detector ran")
	}
}

// resolvePolicy loads the policy file, falling back to the
// VULPES_POLICY_DEFAULT environment variable and then the strict
// profile defaults.
func resolvePolicy(path string) (*policy.Policy, error) {
	if path == "" {
		path = os.Getenv(policy.EnvPolicyDefault)
	}
	if path == "" {
		return policy.Default(policy.ProfileHIPAAStrict), nil
	}
	return policy.LoadFile(path)
}

// VerifyCmd implements receipt verification.
type VerifyCmd struct {
	Receipt  string `name:"receipt" type:"existingfile" required:"" help:".red bundle to verify"`
	Original string `name:"original" type:"existingfile" required:"" help:"Original document"`
	Redacted string `name:"redacted" type:"existingfile" optional:"" help:"Redacted document (defaults to the copy inside the bundle)"`
	Policy   string `name:"policy" type:"existingfile" optional:"" help:"Policy the receipt claims"`
}

// Run executes the verify command.
func (c *VerifyCmd) Run(cfg *GlobalConfig) error {
	logger := log.Default()

	f, err := os.Open(c.Receipt)
	if err != nil {
		return fmt.Errorf("open receipt: %w", err)
	}
	defer f.Close()
	rec, bundled, err := receipt.DecodeBundle(f)
	if err != nil {
		return err
	}

	original, err := os.ReadFile(c.Original)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}
	redacted := bundled
	if c.Redacted != "" {
		redacted, err = os.ReadFile(c.Redacted)
		if err != nil {
			return fmt.Errorf("read redacted: %w", err)
		}
	}
	if redacted == nil {
		return fmt.Errorf("bundle has no output copy; pass --redacted")
	}

	var pol *policy.Policy
	if c.Policy != "" {
		pol, err = policy.LoadFile(c.Policy)
		if err != nil {
			return err
		}
	}

	v := receipt.Verify(rec, original, redacted, pol)
	if !v.Valid {
		return fmt.Errorf("receipt verification failed: %s", v.Reason)
	}
	logger.Info("receipt verified", "documentId", rec.DocumentID, "merkleRoot", rec.MerkleRoot)
	return nil
}

// VersionCmd prints build information.
type VersionCmd struct {
	JSON bool `name:"json" help:"Print as JSON"`
}

// Run executes the version command.
func (c *VersionCmd) Run(cfg *GlobalConfig) error {
	if c.JSON {
		s, err := build.Get().JSON()
		if err != nil {
			return err
		}
		fmt.Println(s)
		return nil
	}
	fmt.Println(build.Get().String())
	return nil
}
