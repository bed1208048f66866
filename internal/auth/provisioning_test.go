package auth

import (
	"context"
	"sync"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/audit"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Provisioner", func() {
	var (
		store *memoryStore
		trail *recordingTrail
		ctx   context.Context
	)

	ginkgo.BeforeEach(func() {
		store = newMemoryStore()
		trail = &recordingTrail{}
		ctx = context.Background()
	})

	ginkgo.It("is unconfigured without an allow-listed identity", func() {
		p := NewProvisioner(store, internal.SecurityConfig{}, trail, nil)
		gomega.Expect(p.Configured()).To(gomega.BeFalse())
		_, err := p.EnsureSuperAdmin(ctx)
		gomega.Expect(err).To(gomega.MatchError(ErrSuperAdminNotConfigured))
	})

	ginkgo.It("matches on email or provider username", func() {
		p := NewProvisioner(store, internal.SecurityConfig{
			SuperAdminEmail:            "root@example.com",
			SuperAdminProviderUsername: "rootadmin",
		}, trail, nil)

		gomega.Expect(p.Matches(&Identity{Email: "ROOT@example.com"})).To(gomega.BeTrue())
		gomega.Expect(p.Matches(&Identity{Email: "x@example.com", Username: "rootadmin"})).To(gomega.BeTrue())
		gomega.Expect(p.Matches(&Identity{Email: "x@example.com", Username: "other"})).To(gomega.BeFalse())
		gomega.Expect(p.Matches(nil)).To(gomega.BeFalse())
	})

	ginkgo.It("creates the super admin once under concurrency", func() {
		p := NewProvisioner(store, internal.SecurityConfig{SuperAdminEmail: "root@example.com"}, trail, nil)

		var wg sync.WaitGroup
		ids := make([]int64, 8)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer ginkgo.GinkgoRecover()
				admin, err := p.EnsureSuperAdmin(ctx)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				ids[i] = admin.ID
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			gomega.Expect(id).To(gomega.Equal(ids[0]))
		}
		gomega.Expect(store.createProfile).To(gomega.Equal(1))
		gomega.Expect(trail.ofType(audit.EventUserCreated)).To(gomega.HaveLen(1))

		admin, err := store.FindProfileByUsername(ctx, "root")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(admin.Role).To(gomega.Equal(profile.RoleSuperAdmin))
		gomega.Expect(admin.IsActive).To(gomega.BeTrue())
		gomega.Expect(admin.OrganizationID).To(gomega.BeNil())
		gomega.Expect(admin.TrackingID).NotTo(gomega.BeEmpty())
	})

	ginkgo.It("refuses to promote an existing non super admin", func() {
		store.addProfile(&profile.Profile{Username: "root", Role: profile.RoleEmployee, OrganizationID: profile.Int64Ptr(1), IsActive: true})
		p := NewProvisioner(store, internal.SecurityConfig{SuperAdminEmail: "root@example.com"}, trail, nil)

		_, err := p.EnsureSuperAdmin(ctx)
		gomega.Expect(err).To(gomega.MatchError(ErrSuperAdminConflict))
	})
})
