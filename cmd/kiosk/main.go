package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ms-photobooth/internal/capture"
	"ms-photobooth/internal/models"
)

// A headless kiosk run: resolves the event, walks the capture machine through
// one full visit and submits the given photo. Useful for smoke-testing a
// deployment without a browser.
func main() {
	var (
		base  = flag.String("base", "http://localhost:8086", "service base URL")
		token = flag.String("token", "", "event token (required)")
		src   = flag.String("src", "", "QR source code")
		photo = flag.String("photo", "", "path to the photo to submit (required)")
		reuse = flag.Bool("agree-reuse", true, "agree to marketing reuse")
	)
	flag.Parse()

	if *token == "" || *photo == "" {
		flag.Usage()
		os.Exit(2)
	}

	client := &kioskClient{
		base: *base,
		http: &http.Client{Timeout: 15 * time.Second},
	}

	event, err := client.getEvent(*token)
	if err != nil {
		log.Fatalf("resolve event: %v", err)
	}
	log.Printf("Event: %s (max captures %d)", event.Name, event.SubmissionPolicy.MaxCaptures)

	policy := capture.Policy{
		MaxCaptures:        event.SubmissionPolicy.MaxCaptures,
		HasConsentTemplate: event.ConsentTemplate != nil,
	}
	driver := capture.NewDriver(policy)

	var pending []models.MetricsBatchItem
	driver.OnMetric = func(metricType, platform string) {
		pending = append(pending, models.MetricsBatchItem{Type: metricType, Platform: platform})
	}

	must := func(a capture.Action) capture.State {
		st, applyErr := driver.Apply(a)
		if applyErr != nil {
			log.Fatalf("apply %T at %s: %v", a, st.Step, applyErr)
		}
		return st
	}

	must(capture.Enter{})

	sess, err := client.startSession(*token, *src)
	if err != nil {
		log.Fatalf("start session: %v", err)
	}
	log.Printf("Session: %s (already_submitted=%v)", sess.SessionID, sess.AlreadySubmitted)

	st := must(capture.SessionReady{SessionID: sess.SessionID, AlreadySubmitted: sess.AlreadySubmitted})
	if st.Step == capture.StepDone {
		log.Println("Session already submitted, nothing to do")
		return
	}

	if policy.HasConsentTemplate {
		must(capture.TickConsent{Agree: true})
	}
	must(capture.StartCamera{})
	must(capture.Capture{})
	must(capture.Keep{})

	upload, err := client.uploadPhoto(sess.SessionID, *photo)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	log.Printf("Uploaded asset %s", upload.MediaAssetID)

	agreeReuse := *reuse
	if policy.HasConsentTemplate && !agreeReuse {
		log.Println("Event requires the reuse acknowledgment to submit, agreeing")
		agreeReuse = true
	}
	must(capture.TickReuseConsent{Agree: agreeReuse})

	result, submitErr := client.submit(sess.SessionID, upload.MediaAssetID, agreeReuse)
	if submitErr != nil {
		if result != nil && result.Locked {
			must(capture.SubmitConflicted{})
			log.Println("Submission already locked by a concurrent submit")
		} else {
			log.Fatalf("submit: %v", submitErr)
		}
	} else {
		st = must(capture.SubmitSucceeded{})
		log.Printf("Submitted %s, now on %s", result.SubmissionID, st.Step)
		driver.EmitSaveClick()
		must(capture.Dismiss{})
	}

	if len(pending) > 0 {
		if err := client.flushMetrics(sess.SessionID, pending); err != nil {
			log.Printf("metrics flush failed (ignored): %v", err)
		}
	}
	log.Println("Done.")
}

type kioskClient struct {
	base string
	http *http.Client
}

func (c *kioskClient) getEvent(token string) (*models.EventPublic, error) {
	resp, err := c.http.Get(c.base + "/api/public/events/" + token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var body struct {
		Event models.EventPublic `json:"event"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &body.Event, nil
}

func (c *kioskClient) startSession(token, src string) (*models.SessionStartResponse, error) {
	payload, _ := json.Marshal(models.SessionStartRequest{EventToken: token, QRSourceCode: src})
	resp, err := c.http.Post(c.base+"/api/public/sessions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out models.SessionStartResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *kioskClient) uploadPhoto(sessionID, path string) (*models.UploadResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("session_id", sessionID); err != nil {
		return nil, err
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	resp, err := c.http.Post(c.base+"/api/public/uploads", writer.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *kioskClient) submit(sessionID, assetID string, agreeReuse bool) (*models.SubmitResponse, error) {
	payload, _ := json.Marshal(models.SubmitRequest{
		SessionID:    sessionID,
		MediaAssetID: assetID,
		Consent:      models.SubmitConsent{AgreeReuse: agreeReuse},
	})
	resp, err := c.http.Post(c.base+"/api/public/submissions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return &models.SubmitResponse{Locked: true}, fmt.Errorf("already submitted")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out models.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *kioskClient) flushMetrics(sessionID string, items []models.MetricsBatchItem) error {
	payload, _ := json.Marshal(models.MetricsBatchRequest{SessionID: sessionID, Events: items})
	resp, err := c.http.Post(c.base+"/api/public/metrics/batch", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
