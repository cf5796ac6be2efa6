package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	cal "github.com/carewell/medibot/internal/model/calendar"
)

// Fills a running calendar service with plausible bookings for demos and
// manual testing.
func main() {
	addr := flag.String("addr", "http://localhost:8090", "calendar service base URL")
	count := flag.Int("count", 25, "number of appointments to create")
	days := flag.Int("days", 14, "spread appointments across this many upcoming days")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	created := 0

	for i := 0; i < *count; i++ {
		form := randomForm(*days)
		if err := postAppointment(client, *addr, form); err != nil {
			log.Printf("[seed] create failed: %v", err)
			continue
		}
		created++
	}

	log.Printf("[seed] created %d/%d appointments", created, *count)
}

func randomForm(days int) cal.Form {
	date := time.Now().AddDate(0, 0, 1+rand.Intn(days)).Format(cal.DateLayout)
	return cal.Form{
		Date:        date,
		Time:        cal.TimeSlots[rand.Intn(len(cal.TimeSlots))],
		PatientName: gofakeit.Name(),
		Doctor:      cal.Doctors[rand.Intn(len(cal.Doctors))],
		Symptoms:    randomSymptoms(),
	}
}

func randomSymptoms() string {
	complaints := []string{
		"persistent dry cough for the last %d days",
		"intermittent headaches with mild nausea for %d days",
		"lower back pain that worsens after sitting, roughly %d days now",
		"sore throat and low-grade fever since %d days ago",
		"skin rash on both arms, itching for about %d days",
		"shortness of breath when climbing stairs, noticed %d days ago",
	}
	return fmt.Sprintf(complaints[rand.Intn(len(complaints))], 1+rand.Intn(13))
}

func postAppointment(client *http.Client, addr string, form cal.Form) error {
	payload, err := json.Marshal(form)
	if err != nil {
		return err
	}

	resp, err := client.Post(addr+"/api/appointments/", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var out struct {
			Errors map[string]string `json:"errors"`
			Error  string            `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return fmt.Errorf("status %d: %v%s", resp.StatusCode, out.Errors, out.Error)
	}
	return nil
}
