// Command codetrack is a CLI client for the CodeTrack service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cpcoders/codetrack/internal/convert"
	"github.com/cpcoders/codetrack/internal/securecache"
)

const appName = "codetrack"

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.Create(tokenPath())
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

// ---- profile cache ----

const profileCacheKey = "profile"

// openCache returns the encrypted profile cache, or nil when the environment
// cannot support it. A nil cache degrades to network-only behavior.
func openCache() *securecache.Cache {
	if !securecache.IsSupported() {
		return nil
	}
	path, err := securecache.DefaultPath(appName)
	if err != nil {
		return nil
	}
	return securecache.New(path, securecache.NewSessionKeyStore(appName))
}

func cacheProfile(ctx context.Context, cache *securecache.Cache, u convert.UserDTO) {
	if cache == nil {
		return
	}
	// best-effort write-through
	_ = cache.SetItem(ctx, profileCacheKey, u)
}

func cachedProfile(ctx context.Context, cache *securecache.Cache) (convert.UserDTO, bool) {
	if cache == nil {
		return convert.UserDTO{}, false
	}
	var u convert.UserDTO
	found, err := cache.GetItem(ctx, profileCacheKey, &u)
	if err != nil || !found {
		return convert.UserDTO{}, false
	}
	return u, true
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func saveLogin(ctx context.Context, cache *securecache.Cache, res loginResult) error {
	// parse exp from JWT
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(res.AccessToken, &claims, func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	exp := time.Now().Add(15 * time.Minute)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := saveToken(res.AccessToken, exp); err != nil {
		return err
	}
	cacheProfile(ctx, cache, res.User)
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `codetrack CLI
Usage:
  codetrack [-server URL] <cmd> [args]

Commands:
  version
  register  -u <username> -e <email> -p <password> [-n <name>]
  login     -e <email> -p <password>                (saves token)
  google    -t <id-token>                           (saves token)
  logout                                            (drops token and cache)
  whoami    [-refresh]
  add       -platform <p> -name <title> -link <url> [-number N] [-difficulty d]
            [-status s] [-topics a,b] [-notes text]     (idempotent upsert)
  list      [-status s] [-difficulty d] [-platform p] [-topics a,b]
            [-bookmarked] [-search q] [-sort field] [-order asc|desc]
            [-page N] [-limit N]
  get       -id <uuid>
  status    -id <uuid> -s <solved|unsolved|for-future>
  bookmark  -id <uuid>
  revise    -id <uuid>
  rm        -id <uuid>
  stats
  topics
  heatmap   [-year YYYY]
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against the REST API.
func main() {
	// global flags
	server := flag.String("server", "http://localhost:8080", "server base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cache := openCache()
	if cache != nil {
		defer cache.Close()
	}

	switch cmd {

	case "version":
		fmt.Printf("codetrack %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		u := fs.String("u", "", "username")
		n := fs.String("n", "", "display name")
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *u == "" || *e == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u, -e and -p")
			os.Exit(1)
		}
		id, err := newClient(*server, "").register(ctx, *u, *n, *e, *p)
		if err != nil {
			fail(err)
		}
		fmt.Println(id)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *e == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -e and -p")
			os.Exit(1)
		}
		res, err := newClient(*server, "").login(ctx, *e, *p)
		if err != nil {
			fail(err)
		}
		if err := saveLogin(ctx, cache, res); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "google":
		fs := flag.NewFlagSet("google", flag.ExitOnError)
		t := fs.String("t", "", "google id token")
		_ = fs.Parse(args)
		if *t == "" {
			fmt.Fprintln(os.Stderr, "need -t")
			os.Exit(1)
		}
		res, err := newClient(*server, "").loginGoogle(ctx, *t)
		if err != nil {
			fail(err)
		}
		if err := saveLogin(ctx, cache, res); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "logout":
		if err := os.Remove(tokenPath()); err != nil && !os.IsNotExist(err) {
			fail(err)
		}
		if cache != nil {
			_ = cache.Clear(ctx)
		}
		fmt.Println("ok")

	case "whoami":
		fs := flag.NewFlagSet("whoami", flag.ExitOnError)
		refresh := fs.Bool("refresh", false, "skip the cache")
		_ = fs.Parse(args)

		if !*refresh {
			if u, ok := cachedProfile(ctx, cache); ok {
				printJSON(u)
				return
			}
		}
		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		u, err := cli.profile(ctx)
		if err != nil {
			fail(err)
		}
		cacheProfile(ctx, cache, u)
		printJSON(u)

	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		platform := fs.String("platform", "", "platform (leetcode, gfg, ...)")
		number := fs.String("number", "", "question number (required for leetcode)")
		name := fs.String("name", "", "question title")
		link := fs.String("link", "", "question link")
		difficulty := fs.String("difficulty", "", "easy|medium|hard")
		status := fs.String("status", "", "solved|unsolved|for-future")
		topics := fs.String("topics", "", "comma-separated topics")
		notes := fs.String("notes", "", "notes")
		_ = fs.Parse(args)
		if *platform == "" || *name == "" || *link == "" {
			fmt.Fprintln(os.Stderr, "need -platform, -name and -link")
			os.Exit(1)
		}
		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		in := convert.QuestionInputDTO{
			Platform:    *platform,
			QuestNumber: *number,
			QuestName:   *name,
			QuestLink:   *link,
			Difficulty:  *difficulty,
			Status:      *status,
			Topics:      splitTopics(*topics),
			Notes:       *notes,
		}
		res, err := cli.upsertQuest(ctx, in)
		if err != nil {
			fail(err)
		}
		if res.Created {
			fmt.Println("created", res.Quest.ID)
		} else {
			fmt.Println("updated", res.Quest.ID)
		}

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		status := fs.String("status", "", "filter by status")
		difficulty := fs.String("difficulty", "", "filter by difficulty (comma-separated)")
		platform := fs.String("platform", "", "filter by platform (comma-separated)")
		topics := fs.String("topics", "", "filter by topics (comma-separated)")
		bookmarked := fs.Bool("bookmarked", false, "bookmarked only")
		search := fs.String("search", "", "search term")
		sortBy := fs.String("sort", "", "sort field")
		order := fs.String("order", "desc", "asc|desc")
		page := fs.Int("page", 0, "page")
		limit := fs.Int("limit", 0, "page size")
		_ = fs.Parse(args)

		q := url.Values{}
		setIf := func(k, v string) {
			if v != "" {
				q.Set(k, v)
			}
		}
		setIf("status", *status)
		setIf("difficulty", *difficulty)
		setIf("platform", *platform)
		setIf("topics", *topics)
		setIf("search", *search)
		setIf("sortBy", *sortBy)
		setIf("sortOrder", *order)
		if *bookmarked {
			q.Set("bookmarked", "true")
		}
		if *page > 0 {
			q.Set("page", strconv.Itoa(*page))
		}
		if *limit > 0 {
			q.Set("limit", strconv.Itoa(*limit))
		}

		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		res, err := cli.listQuests(ctx, q)
		if err != nil {
			fail(err)
		}
		for _, quest := range res.Quests {
			mark := " "
			if quest.Bookmarked {
				mark = "*"
			}
			num := quest.QuestNumber
			if num == "" {
				num = "-"
			}
			fmt.Printf("%s %-36s %-12s %-5s %-10s %-9s %s\n",
				mark, quest.ID, quest.Platform, num, quest.Status, quest.Difficulty, quest.QuestName)
		}
		p := res.Pagination
		fmt.Printf("page %d/%d (%d total)\n", p.CurrentPage, p.TotalPages, p.TotalCount)

	case "get":
		id := requireID(args)
		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		quest, err := cli.getQuest(ctx, id)
		if err != nil {
			fail(err)
		}
		printJSON(quest)

	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		id := fs.String("id", "", "question id (uuid)")
		s := fs.String("s", "", "new status")
		_ = fs.Parse(args)
		if *id == "" || *s == "" {
			fmt.Fprintln(os.Stderr, "need -id and -s")
			os.Exit(1)
		}
		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		quest, err := cli.setStatus(ctx, *id, *s)
		if err != nil {
			fail(err)
		}
		printJSON(quest)

	case "bookmark":
		id := requireID(args)
		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		quest, err := cli.toggleBookmark(ctx, id)
		if err != nil {
			fail(err)
		}
		printJSON(quest)

	case "revise":
		id := requireID(args)
		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		quest, err := cli.markRevised(ctx, id)
		if err != nil {
			fail(err)
		}
		printJSON(quest)

	case "rm":
		id := requireID(args)
		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		if err := cli.deleteQuest(ctx, id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "stats":
		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		out, err := cli.stats(ctx)
		if err != nil {
			fail(err)
		}
		printRaw(out)

	case "topics":
		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		out, err := cli.topics(ctx)
		if err != nil {
			fail(err)
		}
		printRaw(out)

	case "heatmap":
		fs := flag.NewFlagSet("heatmap", flag.ExitOnError)
		year := fs.Int("year", 0, "calendar year")
		_ = fs.Parse(args)
		cli, err := authedClient(*server)
		if err != nil {
			fail(err)
		}
		out, err := cli.heatmap(ctx, *year)
		if err != nil {
			fail(err)
		}
		printRaw(out)

	default:
		usage()
	}
}

// ---- helpers ----

func authedClient(server string) (*apiClient, error) {
	token, err := loadToken()
	if err != nil {
		return nil, err
	}
	return newClient(server, token), nil
}

func requireID(args []string) string {
	fs := flag.NewFlagSet("id", flag.ExitOnError)
	id := fs.String("id", "", "question id (uuid)")
	_ = fs.Parse(args)
	if *id == "" {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}
	return *id
}

func splitTopics(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func printRaw(raw json.RawMessage) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	printJSON(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
