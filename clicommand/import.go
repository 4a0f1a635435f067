package clicommand

import (
	"context"
	"slices"
	"time"

	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/catalog"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/gcplib"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/importer"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/ingestclient"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/objectstore"
	"github.com/urfave/cli"
)

const importHelpDescription = `Usage:

    pss-fleet-data-importer import [options]

Description:

Continuously mirrors collection-file artifacts from a Google Drive folder
into the ingestion API, recording each artifact's lifecycle in a Postgres
catalog. Runs once per hour unless --run-once is given.`

// ImportConfig is the full set of flags for the import command (§6).
type ImportConfig struct {
	GlobalConfig

	IngestionAPIURL   string `cli:"ingestion-api-url" validate:"required"`
	IngestionAPIToken string `cli:"ingestion-api-token"`

	DriveFolderID string `cli:"drive-folder-id" validate:"required"`
	TargetDir     string `cli:"target-dir" validate:"required"`

	// Optional OAuth2 refresh-token credentials, used instead of
	// Application Default Credentials when set.
	DriveOAuthClientID     string `cli:"drive-oauth-client-id"`
	DriveOAuthClientSecret string `cli:"drive-oauth-client-secret"`
	DriveOAuthRefreshToken string `cli:"drive-oauth-refresh-token"`

	DatabaseURL                 string `cli:"database-url" validate:"required"`
	ReinitializeDatabaseOnStart bool   `cli:"reinitialize-database-on-startup"`

	DownloadConcurrency int           `cli:"download-concurrency"`
	DownloadTimeout     time.Duration `cli:"download-timeout"`

	KeepLocalFiles        bool `cli:"keep-local-files"`
	UpdateExistingRecords bool `cli:"update-existing-collections"`

	RunOnce bool   `cli:"run-once"`
	After   string `cli:"after"`
	Before  string `cli:"before"`
}

var (
	IngestionAPIURLFlag = cli.StringFlag{
		Name:   "ingestion-api-url",
		Usage:  "Base URL of the ingestion API that collections are uploaded to",
		EnvVar: "IMPORTER_INGESTION_API_URL",
	}

	IngestionAPITokenFlag = cli.StringFlag{
		Name:   "ingestion-api-token",
		Usage:  "Bearer token used to authenticate with the ingestion API",
		EnvVar: "IMPORTER_INGESTION_API_TOKEN",
	}

	DriveFolderIDFlag = cli.StringFlag{
		Name:   "drive-folder-id",
		Usage:  "Google Drive folder id to list collection files from",
		EnvVar: "IMPORTER_DRIVE_FOLDER_ID",
	}

	TargetDirFlag = cli.StringFlag{
		Name:   "target-dir",
		Usage:  "Local directory that downloaded collection files are staged in",
		EnvVar: "IMPORTER_TARGET_DIR",
	}

	DriveOAuthClientIDFlag = cli.StringFlag{
		Name:   "drive-oauth-client-id",
		Usage:  "OAuth2 client id for Drive access, used instead of Application Default Credentials when set together with --drive-oauth-client-secret and --drive-oauth-refresh-token",
		EnvVar: "IMPORTER_DRIVE_OAUTH_CLIENT_ID",
	}

	DriveOAuthClientSecretFlag = cli.StringFlag{
		Name:   "drive-oauth-client-secret",
		Usage:  "OAuth2 client secret for Drive access",
		EnvVar: "IMPORTER_DRIVE_OAUTH_CLIENT_SECRET",
	}

	DriveOAuthRefreshTokenFlag = cli.StringFlag{
		Name:   "drive-oauth-refresh-token",
		Usage:  "OAuth2 refresh token for Drive access",
		EnvVar: "IMPORTER_DRIVE_OAUTH_REFRESH_TOKEN",
	}

	DatabaseURLFlag = cli.StringFlag{
		Name:   "database-url",
		Usage:  "Postgres connection string for the catalog database",
		EnvVar: "IMPORTER_DATABASE_URL",
	}

	ReinitializeDatabaseFlag = cli.BoolFlag{
		Name:   "reinitialize-database-on-startup",
		Usage:  "Drop and recreate the catalog table on startup, discarding all history (default: false)",
		EnvVar: "IMPORTER_REINITIALIZE_DATABASE_ON_STARTUP",
	}

	DownloadConcurrencyFlag = cli.IntFlag{
		Name:   "download-concurrency",
		Usage:  "Maximum number of concurrent downloads from the object store",
		Value:  2,
		EnvVar: "IMPORTER_DOWNLOAD_CONCURRENCY",
	}

	DownloadTimeoutFlag = cli.DurationFlag{
		Name:   "download-timeout",
		Usage:  "Per-item download timeout before the download pool is shut down",
		Value:  60 * time.Second,
		EnvVar: "IMPORTER_DOWNLOAD_TIMEOUT",
	}

	KeepLocalFilesFlag = cli.BoolFlag{
		Name:   "keep-local-files",
		Usage:  "Keep downloaded files on disk after a successful upload (default: false)",
		EnvVar: "IMPORTER_KEEP_LOCAL_FILES",
	}

	UpdateExistingCollectionsFlag = cli.BoolFlag{
		Name:   "update-existing-collections",
		Usage:  "Replace an existing collection instead of skipping it when the ingestion API reports a non-unique timestamp (default: false)",
		EnvVar: "IMPORTER_UPDATE_EXISTING_COLLECTIONS",
	}

	RunOnceFlag = cli.BoolFlag{
		Name:   "run-once",
		Usage:  "Run a single import cycle and exit, instead of looping hourly (default: false)",
		EnvVar: "IMPORTER_RUN_ONCE",
	}

	AfterFlag = cli.StringFlag{
		Name:   "after",
		Usage:  "Only consider artifacts modified strictly after this RFC3339 timestamp, overriding the catalog watermark if later",
		EnvVar: "IMPORTER_AFTER",
	}

	BeforeFlag = cli.StringFlag{
		Name:   "before",
		Usage:  "Only consider artifacts modified strictly before this RFC3339 timestamp",
		EnvVar: "IMPORTER_BEFORE",
	}
)

var ImportCommand = cli.Command{
	Name:        "import",
	Usage:       "Continuously imports collection files from Google Drive into the ingestion API",
	Description: importHelpDescription,
	Flags: slices.Concat(globalFlags(), []cli.Flag{
		IngestionAPIURLFlag,
		IngestionAPITokenFlag,
		DriveFolderIDFlag,
		TargetDirFlag,
		DriveOAuthClientIDFlag,
		DriveOAuthClientSecretFlag,
		DriveOAuthRefreshTokenFlag,
		DatabaseURLFlag,
		ReinitializeDatabaseFlag,
		DownloadConcurrencyFlag,
		DownloadTimeoutFlag,
		KeepLocalFilesFlag,
		UpdateExistingCollectionsFlag,
		RunOnceFlag,
		AfterFlag,
		BeforeFlag,
	}),
	Action: func(c *cli.Context) error {
		ctx := context.Background()
		ctx, cfg, l, _, done := setupLoggerAndConfig[ImportConfig](ctx, c)
		defer done()

		after, err := parseOptionalTime(cfg.After)
		if err != nil {
			l.Fatal("invalid --after: %v", err)
		}
		before, err := parseOptionalTime(cfg.Before)
		if err != nil {
			l.Fatal("invalid --before: %v", err)
		}

		store, err := catalog.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			l.Fatal("failed to connect to catalog database: %v", err)
		}
		defer store.Close()

		if err := store.Initialize(ctx, cfg.ReinitializeDatabaseOnStart); err != nil {
			l.Fatal("failed to initialize catalog: %v", err)
		}

		var gcpConfig *gcplib.Config
		if cfg.DriveOAuthRefreshToken != "" {
			gcpConfig, err = gcplib.GetConfigFromRefreshToken(ctx, gcplib.RefreshTokenConfig{
				ClientID:     cfg.DriveOAuthClientID,
				ClientSecret: cfg.DriveOAuthClientSecret,
				RefreshToken: cfg.DriveOAuthRefreshToken,
			})
		} else {
			gcpConfig, err = gcplib.GetConfig(ctx)
		}
		if err != nil {
			l.Fatal("failed to load Google Cloud credentials: %v", err)
		}
		driveService, err := gcpConfig.NewDriveService(ctx)
		if err != nil {
			l.Fatal("failed to create Drive client: %v", err)
		}
		lister := objectstore.NewDriveLister(driveService, cfg.DriveFolderID)

		client := ingestclient.NewClient(l, ingestclient.Config{
			Endpoint:  cfg.IngestionAPIURL,
			Token:     cfg.IngestionAPIToken,
			DebugHTTP: cfg.DebugHTTP,
		})
		if err := client.Ping(ctx); err != nil {
			l.Fatal("could not reach ingestion API: %v", err)
		}

		cancel := importer.NewCancel()
		cancel.WatchSIGINT()

		return importer.Run(ctx, l, cancel, importer.LoopConfig{
			Lister:              lister,
			Store:               store,
			Client:              client,
			TargetDir:           cfg.TargetDir,
			DownloadConcurrency: cfg.DownloadConcurrency,
			DownloadTimeout:     cfg.DownloadTimeout,
			KeepLocalFiles:      cfg.KeepLocalFiles,
			UpdateExisting:      cfg.UpdateExistingRecords,
			RunOnce:             cfg.RunOnce,
			After:               after,
			Before:              before,
		})
	},
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
