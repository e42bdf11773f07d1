package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/repository"
	"github.com/sakif/access-git/internal/repository/postgres"
)

// INTEGRATION SUITE:
// These specs start a real postgres:15 container, so they need Docker and
// are skipped under `go test -short`.
func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres integration suite needs Docker")
	}
	RegisterFailHandler(Fail)
	RunSpecs(t, "Postgres Store Suite")
}

type testDB struct {
	conn      *sql.DB
	container testcontainers.Container
}

func startPostgres(ctx context.Context) *testDB {
	req := testcontainers.ContainerRequest{
		Image:      "postgres:15",
		SkipReaper: true,
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	Expect(err).NotTo(HaveOccurred(), "starting postgres container")

	host, err := container.Host(ctx)
	Expect(err).NotTo(HaveOccurred())
	port, err := container.MappedPort(ctx, "5432")
	Expect(err).NotTo(HaveOccurred())

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	// The port listens a moment before postgres accepts connections.
	var conn *sql.DB
	Eventually(func() error {
		conn, err = sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		return conn.PingContext(ctx)
	}).WithTimeout(15 * time.Second).WithPolling(500 * time.Millisecond).Should(Succeed())

	return &testDB{conn: conn, container: container}
}

func (t *testDB) close(ctx context.Context) {
	_ = t.conn.Close()
	_ = t.container.Terminate(ctx)
}

func tracked(id int64, name string, topic *string) model.TrackedRepository {
	return model.TrackedRepository{
		ID:       id,
		Name:     name,
		FullName: "octo/" + name,
		HTMLURL:  "https://github.com/octo/" + name,
		Owner:    "octo",
		Topic:    topic,
	}
}

var _ = Describe("postgres.DB", Ordered, func() {
	var (
		ctx   context.Context
		tdb   *testDB
		store *postgres.DB
	)

	BeforeAll(func() {
		ctx = context.Background()
		tdb = startPostgres(ctx)

		var err error
		store, err = postgres.FromConn(ctx, tdb.conn)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		tdb.close(ctx)
	})

	BeforeEach(func() {
		_, err := tdb.conn.ExecContext(ctx, `TRUNCATE gh_repositories, gh_login`)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("InsertRepositories", func() {
		It("inserts only unseen rows and never overwrites a topic", func() {
			_, err := store.InsertRepositories(ctx, []model.TrackedRepository{
				tracked(1, "12-backend-api", model.StringPtr("backend")),
			})
			Expect(err).NotTo(HaveOccurred())

			n, err := store.InsertRepositories(ctx, []model.TrackedRepository{
				tracked(1, "12-backend-api", model.StringPtr("other")),
				tracked(2, "frontend", model.StringPtr(model.MiscellaneousTopic)),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			repos, err := store.RepositoriesByTopic(ctx, "octo", "backend")
			Expect(err).NotTo(HaveOccurred())
			Expect(repos).To(HaveLen(1))
			Expect(repos[0].ID).To(Equal(int64(1)))

			ids, err := store.KnownRepositoryIDs(ctx, "octo")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(HaveLen(2))
			Expect(ids).To(HaveKey(int64(2)))
		})

		It("matches owners ignoring case", func() {
			_, err := store.InsertRepositories(ctx, []model.TrackedRepository{
				tracked(1, "12-backend-api", model.StringPtr("backend")),
			})
			Expect(err).NotTo(HaveOccurred())

			ids, err := store.KnownRepositoryIDs(ctx, "OCTO")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(HaveKey(int64(1)))

			repos, err := store.RepositoriesByTopic(ctx, "Octo", "backend")
			Expect(err).NotTo(HaveOccurred())
			Expect(repos).To(HaveLen(1))
		})
	})

	Describe("TopicsForRepositories", func() {
		It("returns the non-null topics of the given ids", func() {
			_, err := store.InsertRepositories(ctx, []model.TrackedRepository{
				tracked(1, "1-backend-a", model.StringPtr("backend")),
				tracked(2, "2-backend-b", model.StringPtr("backend")),
				tracked(3, "plain", model.StringPtr(model.MiscellaneousTopic)),
				tracked(4, "untagged", nil),
			})
			Expect(err).NotTo(HaveOccurred())

			topics, err := store.TopicsForRepositories(ctx, "octo", []int64{1, 2, 3, 4})
			Expect(err).NotTo(HaveOccurred())
			Expect(topics).To(ConsistOf("backend", "backend", model.MiscellaneousTopic))
		})
	})

	Describe("AssignTopic and ClearTopic", func() {
		It("upserts the topic and later nulls it without deleting rows", func() {
			n, err := store.AssignTopic(ctx, []model.TrackedRepository{
				tracked(1, "api", nil),
				tracked(2, "api-docs", nil),
			}, "api")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			cleared, err := store.ClearTopic(ctx, "octo", "api")
			Expect(err).NotTo(HaveOccurred())
			Expect(cleared).To(Equal(int64(2)))

			repos, err := store.RepositoriesByTopic(ctx, "octo", "api")
			Expect(err).NotTo(HaveOccurred())
			Expect(repos).To(BeEmpty())

			var count int
			Expect(tdb.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM gh_repositories`).Scan(&count)).To(Succeed())
			Expect(count).To(Equal(2))
		})
	})

	Describe("site password", func() {
		It("reports NotFound until a hash is stored, then returns the latest", func() {
			_, err := store.PasswordHash(ctx, repository.SitePasswordName)
			Expect(errors.Is(err, apperror.ErrNotFound)).To(BeTrue())

			Expect(store.SetPasswordHash(ctx, repository.SitePasswordName, "$2a$04$one")).To(Succeed())
			Expect(store.SetPasswordHash(ctx, repository.SitePasswordName, "$2a$04$two")).To(Succeed())

			hash, err := store.PasswordHash(ctx, repository.SitePasswordName)
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(Equal("$2a$04$two"))
		})
	})
})
