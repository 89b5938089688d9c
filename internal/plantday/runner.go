package plantday

import (
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Notifier sends the plant-of-the-day message.
type Notifier interface {
	Send(text string) error
}

// Default notify time when the configured value is missing or invalid.
const (
	defaultNotifyHour   = 9
	defaultNotifyMinute = 35
)

// jobWindowMinutes is how long after the trigger minute a job may still
// fire, so a tick landing a little late does not miss the day.
const jobWindowMinutes = 2

// Runner fires the two date-gated daily jobs: fetch a new plant shortly
// after local midnight, and send the notification at the configured time.
// Each job runs at most once per day per process (in-memory date guard);
// the notification additionally takes the cross-process marker-file claim.
type Runner struct {
	store      *Store
	fetcher    *Fetcher
	notifier   Notifier
	notifyTime func() string // "HH:MM", snapshotted each tick

	lastFetchDate  string // "2006-01-02"
	lastNotifyDate string
}

// NewRunner creates a runner. notifyTimeFn returns the configured
// notification time-of-day.
func NewRunner(store *Store, fetcher *Fetcher, notifier Notifier, notifyTimeFn func() string) *Runner {
	return &Runner{
		store:      store,
		fetcher:    fetcher,
		notifier:   notifier,
		notifyTime: notifyTimeFn,
	}
}

// Run checks both job windows against the given local time. Called every
// tick; it is cheap when neither window is open.
func (r *Runner) Run(now time.Time) {
	today := now.Format("2006-01-02")

	// Fetch job: shortly after local midnight.
	if now.Hour() == 0 && now.Minute() < jobWindowMinutes && r.lastFetchDate != today {
		r.lastFetchDate = today
		if _, err := r.fetcher.Fetch(); err != nil {
			// Not retried until tomorrow.
			log.Printf("plantday: fetch failed: %v", err)
		}
	}

	// Notify job: at the configured time-of-day.
	h, m := parseNotifyTime(r.notifyTime())
	if now.Hour() == h && now.Minute() >= m && now.Minute() < m+jobWindowMinutes && r.lastNotifyDate != today {
		r.lastNotifyDate = today
		r.notify(now)
	}
}

func (r *Runner) notify(now time.Time) {
	if !r.store.ClaimNotifySent(now) {
		log.Printf("plantday: notification for %s already claimed", now.Format("2006-01-02"))
		return
	}

	plant := r.store.Current()
	if plant == nil {
		// The midnight window may not have run in this process; fetch inline.
		p, err := r.fetcher.Fetch()
		if err != nil {
			log.Printf("plantday: inline fetch failed: %v", err)
			return
		}
		plant = p
	}
	if plant == nil {
		return
	}

	if err := r.notifier.Send(formatMessage(plant)); err != nil {
		log.Printf("plantday: notification failed: %v", err)
	}
}

// parseNotifyTime parses "HH:MM", falling back to the default on anything
// invalid.
func parseNotifyTime(s string) (int, int) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return defaultNotifyHour, defaultNotifyMinute
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return defaultNotifyHour, defaultNotifyMinute
	}
	return h, m
}

func formatMessage(p *Plant) string {
	name := p.CommonName
	if name == "" && len(p.ScientificName) > 0 {
		name = p.ScientificName[0]
	}
	if name == "" {
		name = "a mystery plant"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌱 *Plant of the Day: %s*\n", name)
	fmt.Fprintf(&b, "%s\n", puns[rand.Intn(len(puns))])
	if len(p.ScientificName) > 0 {
		fmt.Fprintf(&b, "Scientific name: _%s_\n", p.ScientificName[0])
	}
	if p.DefaultImage.RegularURL != "" {
		fmt.Fprintf(&b, "%s\n", p.DefaultImage.RegularURL)
	}
	fmt.Fprintf(&b, "Learn more: %s", wikipediaURL(p))
	return b.String()
}

// wikipediaURL builds the article URL from genus + species epithet, or falls
// back to the scientific or common name.
func wikipediaURL(p *Plant) string {
	title := ""
	if p.Genus != "" && p.SpeciesEpithet != "" {
		title = p.Genus + " " + p.SpeciesEpithet
	} else if len(p.ScientificName) > 0 {
		title = p.ScientificName[0]
	} else {
		title = p.CommonName
	}
	title = strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	return "https://en.wikipedia.org/wiki/" + url.PathEscape(title)
}

var puns = []string{
	"Aloe you vera much!",
	"I'm rooting for you today.",
	"Thistle be a great day.",
	"Don't stop beleafing!",
	"You grow, friend!",
	"Bloom where you are planted.",
	"Have a plant-astic day!",
	"Leaf your worries behind.",
}
