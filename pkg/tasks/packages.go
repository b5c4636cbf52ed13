package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/sysforge/sysforge/pkg/logging"
)

// PackagesTask installs the platform default package set plus the user's
// configured additions through the selected package manager.
type PackagesTask struct{}

// NewPackagesTask returns the packages task.
func NewPackagesTask() *PackagesTask { return &PackagesTask{} }

func (t *PackagesTask) Name() string        { return "packages" }
func (t *PackagesTask) Description() string { return "Package installation" }
func (t *PackagesTask) StateKey() string    { return t.Name() }

func (t *PackagesTask) Plan(ctx context.Context, tc *Context) ([]string, error) {
	if tc.ManagerErr != nil {
		return []string{"no package manager available: " + tc.ManagerErr.Error()}, nil
	}

	names := tc.Config.PackageSet(tc.Profile)
	var missing []string
	for _, name := range names {
		if !tc.Manager.IsInstalled(ctx, name) {
			missing = append(missing, name)
		}
	}

	plan := []string{fmt.Sprintf("update %s metadata", tc.Manager.Name())}
	if len(missing) == 0 {
		plan = append(plan, fmt.Sprintf("all %d packages already installed", len(names)))
	} else {
		plan = append(plan, fmt.Sprintf("install via %s: %s", tc.Manager.Name(), strings.Join(missing, ", ")))
	}
	return plan, nil
}

func (t *PackagesTask) Execute(ctx context.Context, tc *Context) error {
	logger := logging.GetLogger("tasks.packages")

	if tc.ManagerErr != nil {
		return tc.ManagerErr
	}

	if err := tc.Manager.Update(ctx); err != nil {
		return err
	}

	names := tc.Config.PackageSet(tc.Profile)
	result, err := tc.Manager.Install(ctx, names)
	if err != nil {
		return err
	}

	logger.Info().
		Str("manager", tc.Manager.Name()).
		Int("installed", len(result.Installed)).
		Int("already_present", len(result.Skipped)).
		Msg("Packages installed")
	return nil
}
