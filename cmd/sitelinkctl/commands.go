package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/TremiDkhar/sitelink/internal/config"
	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/logger"
	"github.com/TremiDkhar/sitelink/internal/peer"
)

func newFlagSet(name string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("sitelinkctl "+name, pflag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func addDigestFlag(fs *pflag.FlagSet) *string {
	return fs.String("digest", string(domain.DigestMD5), "digest scheme shared with the peer (md5 | hmac-sha256)")
}

func addAtFlag(fs *pflag.FlagSet) *string {
	return fs.String("at", "", "RFC3339 instant to use instead of now")
}

func parseAt(at string) (time.Time, error) {
	if at == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at: %w", err)
	}
	return t, nil
}

func required(fs *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		if v, _ := fs.GetString(name); v == "" {
			return fmt.Errorf("--%s is required", name)
		}
	}
	return nil
}

func runSecret(args []string, stdout io.Writer) error {
	fs := newFlagSet("secret", stdout)
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret, err := domain.GenerateSecret()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, secret)
	return nil
}

func runDerive(args []string, stdout io.Writer) error {
	fs := newFlagSet("derive", stdout)
	secret := fs.String("secret", "", "shared link secret")
	site1 := fs.String("site1", "", "first site of the pair")
	site2 := fs.String("site2", "", "second site of the pair")
	digest := addDigestFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "secret", "site1", "site2"); err != nil {
		return err
	}

	d, err := domain.ParseDigest(*digest)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, d.LinkID(*secret, domain.BareHost(*site1), domain.BareHost(*site2)))
	return nil
}

func runIssue(args []string, stdout io.Writer) error {
	fs := newFlagSet("issue", stdout)
	linkID := fs.String("link-id", "", "link id from 'sitelinkctl derive'")
	digest := addDigestFlag(fs)
	at := addAtFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "link-id"); err != nil {
		return err
	}

	d, err := domain.ParseDigest(*digest)
	if err != nil {
		return err
	}
	now, err := parseAt(*at)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, d.IssueToken(*linkID, now))
	return nil
}

func runCheck(args []string, stdout io.Writer) error {
	fs := newFlagSet("check", stdout)
	linkID := fs.String("link-id", "", "link id from 'sitelinkctl derive'")
	remote := fs.String("remote", "", "remote site to ask, e.g. b.example")
	prefix := fs.String("prefix", config.DefaultAPIPrefix, "REST prefix of the remote check endpoint")
	scheme := fs.String("scheme", "https", "scheme used to reach the remote site")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	verbose := fs.BoolP("verbose", "v", false, "log the request")
	digest := addDigestFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "link-id", "remote"); err != nil {
		return err
	}

	d, err := domain.ParseDigest(*digest)
	if err != nil {
		return err
	}

	log := logger.Nop()
	if *verbose {
		log = logger.New("debug", true)
	}

	client := peer.NewClient(*prefix, *timeout, log, peer.WithScheme(*scheme))
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	linked, err := client.Check(ctx, *remote, d.IssueToken(*linkID, time.Now()))
	if err != nil {
		return err
	}
	if !linked {
		fmt.Fprintln(stdout, "not linked")
		return exitError{code: 3}
	}
	fmt.Fprintln(stdout, "linked")
	return nil
}

func runTimestamp(args []string, stdout io.Writer) error {
	fs := newFlagSet("timestamp", stdout)
	at := addAtFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	now, err := parseAt(*at)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, domain.TimeBucket(now))
	return nil
}
