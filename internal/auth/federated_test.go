package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"time"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

const testHMACSecret = "0123456789abcdef0123456789abcdef"

func signHS256(claims jwt.MapClaims, secret string) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return token
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   "https://idp.example.com",
		"aud":   "workforce-console",
		"sub":   "sub-alice",
		"email": "Alice@Example.com",
		"iat":   now.Unix(),
		"exp":   now.Add(5 * time.Minute).Unix(),
	}
}

var _ = ginkgo.Describe("JWTVerifier", func() {
	var (
		ctx context.Context
		cfg internal.FederationConfig
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		cfg = internal.FederationConfig{
			Provider:   "https://idp.example.com",
			Issuer:     "https://idp.example.com",
			Audience:   "workforce-console",
			HMACSecret: testHMACSecret,
		}
	})

	ginkgo.It("refuses to build without key material", func() {
		_, err := NewJWTVerifier(internal.FederationConfig{})
		gomega.Expect(err).To(gomega.MatchError(ErrFederationDisabled))
	})

	ginkgo.Context("HS256", func() {
		var v *JWTVerifier

		ginkgo.BeforeEach(func() {
			var err error
			v, err = NewJWTVerifier(cfg)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("returns the normalized identity", func() {
			id, err := v.Verify(ctx, signHS256(baseClaims(), testHMACSecret))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(id.Provider).To(gomega.Equal("https://idp.example.com"))
			gomega.Expect(id.Subject).To(gomega.Equal("sub-alice"))
			gomega.Expect(id.Email).To(gomega.Equal("alice@example.com"))
		})

		ginkgo.It("rejects a token signed with another secret", func() {
			_, err := v.Verify(ctx, signHS256(baseClaims(), "another-secret-another-secret-xx"))
			gomega.Expect(err).To(gomega.MatchError(ErrIdentityRejected))
		})

		ginkgo.It("rejects an expired token", func() {
			claims := baseClaims()
			claims["exp"] = time.Now().Add(-time.Hour).Unix()
			_, err := v.Verify(ctx, signHS256(claims, testHMACSecret))
			gomega.Expect(err).To(gomega.MatchError(ErrIdentityRejected))
		})

		ginkgo.It("rejects a token for another audience", func() {
			claims := baseClaims()
			claims["aud"] = "someone-else"
			_, err := v.Verify(ctx, signHS256(claims, testHMACSecret))
			gomega.Expect(err).To(gomega.MatchError(ErrIdentityRejected))
		})

		ginkgo.It("rejects an unverified email", func() {
			claims := baseClaims()
			claims["email_verified"] = false
			_, err := v.Verify(ctx, signHS256(claims, testHMACSecret))
			gomega.Expect(err).To(gomega.MatchError(ErrIdentityRejected))
		})

		ginkgo.It("requires subject and email", func() {
			claims := baseClaims()
			delete(claims, "email")
			_, err := v.Verify(ctx, signHS256(claims, testHMACSecret))
			gomega.Expect(err).To(gomega.MatchError(ErrIdentityRejected))
		})

		ginkgo.It("rejects the none algorithm", func() {
			unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, baseClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			_, err = v.Verify(ctx, unsigned)
			gomega.Expect(err).To(gomega.MatchError(ErrIdentityRejected))
		})
	})

	ginkgo.Context("RS256", func() {
		ginkgo.It("verifies with the configured public key", func() {
			key, err := rsa.GenerateKey(rand.Reader, 2048)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			cfg.HMACSecret = ""
			cfg.PublicKey = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
			v, err := NewJWTVerifier(cfg)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			claims := baseClaims()
			claims["preferred_username"] = "alice"
			token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			id, err := v.Verify(ctx, token)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(id.Username).To(gomega.Equal("alice"))

			_, err = v.Verify(ctx, signHS256(baseClaims(), testHMACSecret))
			gomega.Expect(err).To(gomega.MatchError(ErrIdentityRejected))
		})
	})
})
