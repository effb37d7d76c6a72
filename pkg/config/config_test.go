package config_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/querybot/pkg/config"
)

var envKeys = []string{
	"QUERYBOT_BASE_URL",
	"QUERYBOT_TIMEOUT",
	"QUERYBOT_DEBUG",
	"QUERYBOT_LOG_FILE",
	"QUERYBOT_GLAMOUR_STYLE",
	"QUERYBOT_CONFIG",
	"NO_COLOR",
}

// isolateEnv clears every variable config reads and restores them afterwards.
func isolateEnv() {
	for _, key := range envKeys {
		if prev, ok := os.LookupEnv(key); ok {
			DeferCleanup(os.Setenv, key, prev)
		} else {
			DeferCleanup(os.Unsetenv, key)
		}
		Expect(os.Unsetenv(key)).To(Succeed())
	}
}

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
}

func writeFile(path, content string) {
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		isolateEnv()
		dir = GinkgoT().TempDir()
	})

	It("returns defaults when the file does not exist", func() {
		cfg, err := config.Load(filepath.Join(dir, "missing.toml"))
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.BaseURL).To(Equal(config.DefaultBaseURL))
		Expect(cfg.Timeout.Duration).To(Equal(config.DefaultTimeout))
		Expect(cfg.GlamourStyle).To(Equal("auto"))
		Expect(cfg.Debug).To(BeFalse())
	})

	It("reads values from the TOML file", func() {
		path := filepath.Join(dir, "config.toml")
		writeFile(path, `
base_url = "https://querybot.example.com"
timeout = "15s"
debug = true
log_file = "/tmp/qb.log"
glamour_style = "dark"
no_color = true
`)

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.BaseURL).To(Equal("https://querybot.example.com"))
		Expect(cfg.Timeout.Duration).To(Equal(15 * time.Second))
		Expect(cfg.Debug).To(BeTrue())
		Expect(cfg.LogFile).To(Equal("/tmp/qb.log"))
		Expect(cfg.GlamourStyle).To(Equal("dark"))
		Expect(cfg.NoColor).To(BeTrue())
	})

	It("lets the environment override the file", func() {
		path := filepath.Join(dir, "config.toml")
		writeFile(path, `base_url = "http://from-file:5000"`)

		setenv("QUERYBOT_BASE_URL", "http://from-env:5000")
		setenv("QUERYBOT_TIMEOUT", "90")
		setenv("QUERYBOT_DEBUG", "true")
		setenv("QUERYBOT_LOG_FILE", "")
		setenv("NO_COLOR", "1")

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.BaseURL).To(Equal("http://from-env:5000"))
		Expect(cfg.Timeout.Duration).To(Equal(90 * time.Second))
		Expect(cfg.Debug).To(BeTrue())
		Expect(cfg.LogFile).To(BeEmpty())
		Expect(cfg.NoColor).To(BeTrue())
	})

	It("reports TOML syntax errors", func() {
		path := filepath.Join(dir, "config.toml")
		writeFile(path, `base_url = `)

		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("could not parse config")))
	})

	DescribeTable("rejects invalid settings",
		func(content string) {
			path := filepath.Join(dir, "config.toml")
			writeFile(path, content)

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Validate()).To(HaveOccurred())
		},
		Entry("empty base_url", `base_url = ""`),
		Entry("base_url without scheme", `base_url = "localhost:5000"`),
		Entry("zero timeout", `timeout = "0s"`),
		Entry("unknown style", `glamour_style = "neon"`),
	)

	It("rejects a bad QUERYBOT_TIMEOUT", func() {
		setenv("QUERYBOT_TIMEOUT", "soon")
		_, err := config.Load("")
		Expect(err).To(MatchError(ContainSubstring("QUERYBOT_TIMEOUT")))
	})

	It("rejects a bad QUERYBOT_DEBUG", func() {
		setenv("QUERYBOT_DEBUG", "maybe")
		_, err := config.Load("")
		Expect(err).To(MatchError(ContainSubstring("QUERYBOT_DEBUG")))
	})
})

var _ = Describe("LoadDotEnv", func() {
	BeforeEach(func() {
		isolateEnv()
	})

	It("loads variables from a .env file without overriding the environment", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, ".env")
		writeFile(path, "QUERYBOT_BASE_URL=http://dotenv:5000\nQUERYBOT_TIMEOUT=5s\n")
		setenv("QUERYBOT_TIMEOUT", "7s")

		Expect(config.LoadDotEnv(path, filepath.Join(dir, "missing.env"))).To(Succeed())

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.BaseURL).To(Equal("http://dotenv:5000"))
		Expect(cfg.Timeout.Duration).To(Equal(7 * time.Second))
	})
})

var _ = Describe("ResolvePath", func() {
	BeforeEach(func() {
		isolateEnv()
	})

	It("prefers an explicit path", func() {
		setenv("QUERYBOT_CONFIG", "/from/env.toml")
		path, err := config.ResolvePath("/explicit/config.toml")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/explicit/config.toml"))
	})

	It("falls back to QUERYBOT_CONFIG", func() {
		setenv("QUERYBOT_CONFIG", "/from/env.toml")
		path, err := config.ResolvePath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/from/env.toml"))
	})

	It("defaults to ~/.querybot/config.toml", func() {
		home := GinkgoT().TempDir()
		DeferCleanup(os.Setenv, "HOME", os.Getenv("HOME"))
		setenv("HOME", home)

		path, err := config.ResolvePath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(home, ".querybot", "config.toml")))
	})
})

var _ = Describe("Encode", func() {
	BeforeEach(func() {
		isolateEnv()
	})

	It("round-trips through Load", func() {
		cfg := config.Default()
		cfg.BaseURL = "http://encoded:5000"
		cfg.Timeout = config.Duration{Duration: 42 * time.Second}

		var buf bytes.Buffer
		Expect(cfg.Encode(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(`timeout = "42s"`))

		path := filepath.Join(GinkgoT().TempDir(), "config.toml")
		writeFile(path, buf.String())

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.BaseURL).To(Equal("http://encoded:5000"))
		Expect(loaded.Timeout.Duration).To(Equal(42 * time.Second))
	})
})

var _ = Describe("Watcher", func() {
	BeforeEach(func() {
		isolateEnv()
	})

	It("delivers the reloaded config when the file changes", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.toml")
		writeFile(path, `base_url = "http://before:5000"`)

		w, err := config.NewWatcher(path, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)

		changes := make(chan *config.Config, 8)
		go func() {
			defer GinkgoRecover()
			_ = w.Run(ctx, nil, func(cfg *config.Config) { changes <- cfg })
		}()

		writeFile(filepath.Join(dir, "unrelated.toml"), `base_url = "http://ignored:5000"`)
		writeFile(path, `base_url = "http://after:5000"`)

		Eventually(changes, 2*time.Second).Should(Receive(HaveField("BaseURL", "http://after:5000")))
	})

	It("skips edits that do not validate", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.toml")
		writeFile(path, `base_url = "http://before:5000"`)

		w, err := config.NewWatcher(path, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)

		changes := make(chan *config.Config, 8)
		go func() {
			defer GinkgoRecover()
			_ = w.Run(ctx, nil, func(cfg *config.Config) { changes <- cfg })
		}()

		writeFile(path, `base_url = "not a url"`)
		Consistently(changes, 200*time.Millisecond).ShouldNot(Receive())
	})

	It("validates after the overlay is applied", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.toml")
		writeFile(path, `base_url = "http://before:5000"`)

		w, err := config.NewWatcher(path, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)

		overlay := func(cfg *config.Config) { cfg.BaseURL = "http://flag:5000" }
		changes := make(chan *config.Config, 8)
		go func() {
			defer GinkgoRecover()
			_ = w.Run(ctx, overlay, func(cfg *config.Config) { changes <- cfg })
		}()

		writeFile(path, "base_url = \"ftp://old-host\"\ntimeout = \"15s\"")

		Eventually(changes, 2*time.Second).Should(Receive(And(
			HaveField("BaseURL", "http://flag:5000"),
			HaveField("Timeout.Duration", 15*time.Second),
		)))
	})
})
