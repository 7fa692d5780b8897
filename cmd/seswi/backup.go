package main

import (
	"fmt"
	"strconv"

	"seswi-go/internal/seswi"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write sessions to a backup file",
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")
		password, _ := cmd.Flags().GetString("password")
		name, _ := cmd.Flags().GetString("name")
		single, _ := cmd.Flags().GetInt64("single")
		timestamps, _ := cmd.Flags().GetInt64Slice("session")
		dir, _ := cmd.Flags().GetString("out")
		vaultName, _ := cmd.Flags().GetString("vault")

		opts := seswi.ExportOptions{Timestamps: timestamps, Name: name}
		if single != 0 {
			opts.Single = true
			opts.Timestamps = []int64{single}
		}
		if !plain {
			if password == "" {
				var err error
				if password, err = readPassword("Backup password: ", true); err != nil {
					return err
				}
			}
			opts.Password = password
		}

		a, err := newApp(cmd.Context(), "Export", name, strconv.FormatInt(single, 10))
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Export(cmd.Context(), opts, dir, vaultName)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		where := res.Path
		if res.Vault != "" {
			where = res.Vault + ":" + res.FileName
		}
		fmt.Printf("Exported %d session(s) to %s\n", res.Count, where)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Merge sessions from a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		includeDups, _ := cmd.Flags().GetBool("include-duplicates")
		vaultName, _ := cmd.Flags().GetString("vault")

		if password == "" && isEncryptedName(args[0]) {
			var err error
			if password, err = readPassword("Backup password: ", false); err != nil {
				return err
			}
		}

		a, err := newApp(cmd.Context(), "Import", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Import(cmd.Context(), args[0], vaultName, seswi.ImportOptions{
			Password:          password,
			IncludeDuplicates: includeDups,
		})
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		fmt.Printf("Restored %d of %d session(s), %d skipped\n", res.RestoredCount, res.TotalCount, res.SkippedCount)
		return nil
	},
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Manage backups stored in vaults",
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups in a vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")

		a, err := newApp(cmd.Context(), "ListBackups", vaultName)
		if err != nil {
			return err
		}
		defer a.Close()

		name, objs, err := a.ListBackups(cmd.Context(), vaultName)
		if err != nil {
			return err
		}
		if len(objs) == 0 {
			fmt.Printf("No backups in %s.\n", name)
			return nil
		}
		for _, o := range objs {
			fmt.Printf("%-40s  %10d  %s\n", o.Name, o.Size, o.ModifiedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var backupsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that a vault is reachable and writable",
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")

		a, err := newApp(cmd.Context(), "CheckVault", vaultName)
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.CheckVault(cmd.Context(), vaultName)
		if err != nil {
			return err
		}
		fmt.Printf("Vault %s is ready\n", name)
		return nil
	},
}

var backupsDBCmd = &cobra.Command{
	Use:   "db",
	Short: "Upload a copy of the session database to a vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")

		a, err := newApp(cmd.Context(), "BackupDatabase", vaultName)
		if err != nil {
			return err
		}
		defer a.Close()

		where, err := a.BackupDatabase(cmd.Context(), vaultName)
		if err != nil {
			return err
		}
		fmt.Printf("Database uploaded to %s\n", where)
		return nil
	},
}

func isEncryptedName(name string) bool {
	encrypted, err := seswi.CheckBackupFile(name, 0)
	return err == nil && encrypted
}

func init() {
	exportCmd.Flags().Bool("plain", false, "Write an unencrypted JSON backup")
	exportCmd.Flags().StringP("password", "p", "", "Backup password (prompted when absent)")
	exportCmd.Flags().String("name", "", "File name without extension")
	exportCmd.Flags().Int64("single", 0, "Export only the session with this timestamp")
	exportCmd.Flags().Int64Slice("session", nil, "Export only these session timestamps")
	exportCmd.Flags().StringP("out", "o", ".", "Directory to write the backup to")
	exportCmd.Flags().String("vault", "", "Upload to this vault instead of writing a file")

	importCmd.Flags().StringP("password", "p", "", "Backup password (prompted for .owi files)")
	importCmd.Flags().Bool("include-duplicates", false, "Also import sessions that already exist")
	importCmd.Flags().String("vault", "", "Read FILE from this vault")

	backupsCmd.AddCommand(backupsListCmd)
	backupsListCmd.Flags().String("vault", "", "Vault name (default: first configured)")
	backupsCmd.AddCommand(backupsCheckCmd)
	backupsCheckCmd.Flags().String("vault", "", "Vault name (default: first configured)")
	backupsCmd.AddCommand(backupsDBCmd)
	backupsDBCmd.Flags().String("vault", "", "Vault name (default: first configured)")
}
