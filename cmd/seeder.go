package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/workforce-console/internal/auth"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/organization"
	orgpg "github.com/frahmantamala/workforce-console/internal/organization/postgres"
	"github.com/frahmantamala/workforce-console/internal/user"
	userpg "github.com/frahmantamala/workforce-console/internal/user/postgres"
	"github.com/frahmantamala/workforce-console/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	seedDemo     bool
	seedPassword string
)

// seedCmd provisions the super admin and, with --demo, a sample tenant built
// through the same services the API uses so every row is audited.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Provision the super admin and optional demo data",
	Long:  `Create the configured super admin profile and, with --demo, a sample organization, department and users.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		lg := logger.LoggerWrapper()

		st, err := openStores(cfg)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer st.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		trail := newTrail(st, lg, nil)
		credentials, provisioner := newProvisioner(cfg, st, trail, lg)

		admin, err := provisioner.EnsureSuperAdmin(ctx)
		if err != nil {
			log.Fatalf("failed to provision super admin: %v", err)
		}
		fmt.Println("Super admin ready:", admin.Username)

		if !seedDemo {
			return
		}

		hasher, err := auth.NewPasswordHasher(cfg.Security.HashAlgorithm, cfg.Security.HashCostFactor)
		if err != nil {
			log.Fatalf("failed to build password hasher: %v", err)
		}
		guard := authz.NewGuard(lg, nil, nil)
		orgs := organization.NewService(orgpg.NewOrganizationRepository(st.Gorm), guard, trail, lg)
		users := user.NewService(userpg.NewUserRepository(st.Gorm), credentials, hasher, guard, trail, lg)

		if err := seedDemoTenant(ctx, admin, orgs, users, seedPassword); err != nil {
			log.Fatalf("failed to seed demo tenant: %v", err)
		}
		fmt.Println("Demo tenant seeded")
	},
}

type demoUser struct {
	Username    string
	DisplayName string
	Role        profile.Role
}

var demoUsers = []demoUser{
	{"acme.admin", "Acme Admin", profile.RoleOrgAdmin},
	{"acme.manager", "Acme Manager", profile.RoleManager},
	{"acme.employee", "Acme Employee", profile.RoleEmployee},
}

func seedDemoTenant(ctx context.Context, admin *profile.Profile, orgs *organization.Service, users *user.Service, password string) error {
	org, err := orgs.CreateOrganization(ctx, admin, organization.CreateOrganizationRequest{Name: "Acme"})
	if errors.Is(err, organization.ErrNameTaken) {
		org, err = findOrganization(ctx, orgs, admin, "Acme")
	}
	if err != nil {
		return fmt.Errorf("organization: %w", err)
	}
	fmt.Printf("Seeded organization: %s (%d)\n", org.Name, org.ID)

	dept, err := findOrCreateDepartment(ctx, orgs, admin, org.ID, "Operations")
	if err != nil {
		return fmt.Errorf("department: %w", err)
	}

	for _, u := range demoUsers {
		_, err := users.Create(ctx, admin, user.CreateUserRequest{
			Username:       u.Username,
			DisplayName:    u.DisplayName,
			Password:       password,
			Role:           string(u.Role),
			OrganizationID: org.ID,
			DepartmentID:   dept.ID,
		})
		switch {
		case errors.Is(err, user.ErrUsernameTaken):
			fmt.Println("user already exists:", u.Username)
		case err != nil:
			return fmt.Errorf("user %s: %w", u.Username, err)
		default:
			fmt.Println("Seeded user:", u.Username)
		}
	}
	return nil
}

func findOrganization(ctx context.Context, orgs *organization.Service, admin *profile.Profile, name string) (*organization.Organization, error) {
	all, err := orgs.ListOrganizations(ctx, admin)
	if err != nil {
		return nil, err
	}
	for _, o := range all {
		if o.Name == name {
			return o, nil
		}
	}
	return nil, organization.ErrNotFound
}

func findOrCreateDepartment(ctx context.Context, orgs *organization.Service, admin *profile.Profile, orgID int64, name string) (*organization.Department, error) {
	dept, err := orgs.CreateDepartment(ctx, admin, orgID, organization.CreateDepartmentRequest{Name: name})
	if !errors.Is(err, organization.ErrNameTaken) {
		return dept, err
	}

	all, err := orgs.ListDepartments(ctx, admin, orgID)
	if err != nil {
		return nil, err
	}
	for _, d := range all {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, organization.ErrNotFound
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also create a demo organization with one user per role")
	seedCmd.Flags().StringVar(&seedPassword, "demo-password", "change-me-please", "password given to demo users")
}
