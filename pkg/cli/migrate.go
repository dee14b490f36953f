package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"patientsurvey/pkg/storage/gormstore"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the survey_responses table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			if rt.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is not set")
			}

			store, err := gormstore.Open(rt.DatabaseURL)
			if err != nil {
				return err
			}
			defer closeStore(store.Close)

			if err := store.Migrate(); err != nil {
				return err
			}
			log.Println("Migration completed.")
			return nil
		},
	}
}

// closeStore closes a store, logging any error.
func closeStore(closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Printf("warning: closing store: %v", err)
	}
}
