package command

import (
	"errors"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"vaultid/internal/audit"
	"vaultid/internal/kyc"
	"vaultid/internal/platform/postgres"
	sharemodels "vaultid/internal/share/models"
	vaultmodels "vaultid/internal/vault/models"
	id "vaultid/pkg/domain"
)

func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(c *cli.Context) error {
			a := getApp(c)
			if a.DB == nil {
				return errors.New("database.url is not configured")
			}
			if err := postgres.Migrate(c.Context, a.DB); err != nil {
				return err
			}
			return printJSON(c, map[string]string{"status": "migrated"})
		},
	}
}

func NonceCommand() *cli.Command {
	return &cli.Command{
		Name:  "nonce",
		Usage: "Issue a sign-in challenge for a wallet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Wallet address (0x...)", Required: true},
		},
		Action: func(c *cli.Context) error {
			a := getApp(c)
			nonce, err := a.Auth.IssueNonce(c.Context, c.String("address"))
			if err != nil {
				return err
			}
			return printJSON(c, map[string]string{
				"nonce":   nonce,
				"message": a.Auth.Message(nonce),
			})
		},
	}
}

func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Verify a signed challenge and print a session token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Wallet address (0x...)", Required: true},
			&cli.StringFlag{Name: "signature", Aliases: []string{"s"}, Usage: "Hex signature of the challenge message", Required: true},
		},
		Action: func(c *cli.Context) error {
			a := getApp(c)
			ident, err := a.Auth.Verify(c.Context, c.String("address"), c.String("signature"))
			if err != nil {
				return err
			}
			token, err := a.Sessions.IssueSession(ident.ID, ident.WalletAddress)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]string{
				"identity_id":  ident.ID.String(),
				"display_name": ident.DisplayName(),
				"session":      token,
			})
		},
	}
}

func VerifyIDCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify-id",
		Usage: "Submit an identity document and store the provider response",
		Flags: []cli.Flag{
			sessionFlag(),
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "nin, bvn, passport, drivers_license or voters_card", Required: true},
			&cli.StringFlag{Name: "id-number", Usage: "Document number", Required: true},
			&cli.StringFlag{Name: "dob", Usage: "Date of birth, YYYY-MM-DD"},
			&cli.StringFlag{Name: "first-name", Usage: "First name (voter's card)"},
			&cli.StringFlag{Name: "last-name", Usage: "Last name (voter's card)"},
			&cli.PathFlag{Name: "response", Usage: "JSON file holding the provider's response", Required: true},
		},
		Action: func(c *cli.Context) error {
			a := getApp(c)
			identityID, err := sessionIdentity(c)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(c.Path("response"))
			if err != nil {
				return err
			}
			verifier, err := kyc.NewStaticVerifier(raw)
			if err != nil {
				return err
			}
			svc, err := a.KYC(verifier)
			if err != nil {
				return err
			}
			rec, err := svc.Submit(c.Context, identityID, kyc.SubmitRequest{
				IDType:      vaultmodels.IDType(c.String("type")),
				IDNumber:    c.String("id-number"),
				DateOfBirth: c.String("dob"),
				FirstName:   c.String("first-name"),
				LastName:    c.String("last-name"),
			})
			if err != nil {
				return err
			}
			return printJSON(c, recordView(rec))
		},
	}
}

func ShareCommand() *cli.Command {
	return &cli.Command{
		Name:  "share",
		Usage: "Manage share links",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a share link for a verified record",
				Flags: []cli.Flag{
					sessionFlag(),
					&cli.StringFlag{Name: "verification", Usage: "Verification record ID", Required: true},
					&cli.StringFlag{Name: "label", Usage: "Note to remember who the link is for"},
				},
				Action: shareCreate,
			},
			{
				Name:   "list",
				Usage:  "List your share links, newest first",
				Flags:  []cli.Flag{sessionFlag()},
				Action: shareList,
			},
			{
				Name:  "redeem",
				Usage: "Read the record behind a share token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Usage: "32-character share token", Required: true},
				},
				Action: shareRedeem,
			},
			{
				Name:  "revoke",
				Usage: "Deactivate a share link",
				Flags: []cli.Flag{
					sessionFlag(),
					&cli.StringFlag{Name: "share", Usage: "Share link ID", Required: true},
				},
				Action: shareRevoke,
			},
		},
	}
}

func shareCreate(c *cli.Context) error {
	a := getApp(c)
	identityID, err := sessionIdentity(c)
	if err != nil {
		return err
	}
	verificationID, err := id.ParseVerificationID(c.String("verification"))
	if err != nil {
		return err
	}
	capability, err := a.Shares.Issue(c.Context, identityID, verificationID, c.String("label"))
	if err != nil {
		return err
	}
	return printJSON(c, capabilityView(capability))
}

func shareList(c *cli.Context) error {
	a := getApp(c)
	identityID, err := sessionIdentity(c)
	if err != nil {
		return err
	}
	caps, err := a.Shares.ListForIdentity(c.Context, identityID)
	if err != nil {
		return err
	}
	out := make([]capabilityJSON, 0, len(caps))
	for _, capability := range caps {
		out = append(out, capabilityView(capability))
	}
	return printJSON(c, out)
}

func shareRedeem(c *cli.Context) error {
	view, err := getApp(c).Shares.Redeem(c.Context, c.String("token"))
	if err != nil {
		return err
	}
	return printJSON(c, view)
}

func shareRevoke(c *cli.Context) error {
	a := getApp(c)
	identityID, err := sessionIdentity(c)
	if err != nil {
		return err
	}
	shareID, err := id.ParseShareID(c.String("share"))
	if err != nil {
		return err
	}
	if err := a.Shares.Revoke(c.Context, identityID, shareID); err != nil {
		return err
	}
	return printJSON(c, map[string]string{"status": "revoked"})
}

func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show verified records, active links and total accesses",
		Flags: []cli.Flag{sessionFlag()},
		Action: func(c *cli.Context) error {
			identityID, err := sessionIdentity(c)
			if err != nil {
				return err
			}
			stats, err := getApp(c).Shares.Stats(c.Context, identityID)
			if err != nil {
				return err
			}
			return printJSON(c, stats)
		},
	}
}

func AuditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "List your audit events, oldest first",
		Flags: []cli.Flag{sessionFlag()},
		Action: func(c *cli.Context) error {
			identityID, err := sessionIdentity(c)
			if err != nil {
				return err
			}
			events, err := getApp(c).Trail.EventsFor(c.Context, identityID.String())
			if err != nil {
				return err
			}
			out := make([]eventJSON, 0, len(events))
			for _, e := range events {
				out = append(out, eventJSON{Event: e, LedgerReference: e.LedgerReference, Category: e.Type.Category()})
			}
			return printJSON(c, out)
		},
	}
}

func IntegrityCommand() *cli.Command {
	return &cli.Command{
		Name:  "integrity",
		Usage: "Check whether a merkle root is known to storage",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Usage: "Merkle root from a share response", Required: true},
		},
		Action: func(c *cli.Context) error {
			check, err := getApp(c).KV.VerifyRoot(c.Context, c.String("root"))
			if err != nil {
				return err
			}
			return printJSON(c, map[string]any{
				"merkle_root": check.MerkleRoot,
				"is_valid":    check.Valid,
				"verified_on": check.VerifiedOn,
			})
		},
	}
}

type eventJSON struct {
	audit.Event
	Category        audit.EventCategory `json:"category"`
	LedgerReference string              `json:"ledger_reference"`
}

type recordJSON struct {
	ID              string `json:"id"`
	IDType          string `json:"id_type"`
	Label           string `json:"label"`
	Status          string `json:"status"`
	IntegrityRoot   string `json:"merkle_root,omitempty"`
	LedgerReference string `json:"ledger_reference,omitempty"`
	StoredOn        string `json:"stored_on,omitempty"`
}

func recordView(rec *vaultmodels.VerificationRecord) recordJSON {
	return recordJSON{
		ID:              rec.ID.String(),
		IDType:          string(rec.IDType),
		Label:           rec.IDType.Label(),
		Status:          string(rec.Status),
		IntegrityRoot:   rec.IntegrityRoot,
		LedgerReference: rec.LedgerReference,
		StoredOn:        rec.StoredOn,
	}
}

type capabilityJSON struct {
	ID             string `json:"id"`
	VerificationID string `json:"verification_id"`
	Token          string `json:"token"`
	Label          string `json:"label,omitempty"`
	Active         bool   `json:"active"`
	AccessCount    int64  `json:"access_count"`
	LastAccessedAt string `json:"last_accessed_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func capabilityView(c *sharemodels.ShareCapability) capabilityJSON {
	out := capabilityJSON{
		ID:             c.ID.String(),
		VerificationID: c.VerificationID.String(),
		Token:          c.Token,
		Label:          c.Label,
		Active:         c.Active,
		AccessCount:    c.AccessCount,
		CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.LastAccessedAt != nil {
		out.LastAccessedAt = c.LastAccessedAt.UTC().Format(time.RFC3339)
	}
	return out
}
