package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidJSON indicates a JSON-typed configuration field is malformed.
var ErrInvalidJSON = errors.New("invalid JSON")

// PatientConfig is the flat field set substituted into the phone
// instruction template. Timeslots and Dayslots carry JSON documents that are
// injected verbatim; they are validated for well-formedness before use.
type PatientConfig struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	DateOfBirth          string `json:"date_of_birth"`
	InsuranceType        string `json:"insurance_type"`
	Gender               string `json:"gender"`
	AppointmentReason    string `json:"appointment_reason"`
	PatientCity          string `json:"patient_city"`
	FirstVisit           string `json:"first_visit"`
	DoctorName           string `json:"doctor_name"`
	LatestBookingDetails string `json:"latest_booking_details"`
	Timeslots            string `json:"timeslots"` // JSON array of {date, slots, weekNumber}
	Dayslots             string `json:"dayslots"`  // JSON array of dates
}

// DefaultPatientConfig returns the demo configuration pre-filled in the UI.
func DefaultPatientConfig() PatientConfig {
	return PatientConfig{
		FirstName:            "Robin",
		LastName:             "Jose",
		DateOfBirth:          "1975-05-29",
		InsuranceType:        "Gesetzlich",
		Gender:               "male",
		AppointmentReason:    "Zahnschmerzen am rechten Backenzahn",
		PatientCity:          "Berlin",
		FirstVisit:           "Dies ist der erste Besuch des Patienten",
		DoctorName:           "Privatpraxis Zaritzki Fine Dentistry - Berlin Gendarmenmarkt",
		LatestBookingDetails: "2026-01-15",
		Timeslots:            `[{"date":"2026-04-16","slots":["12:50-15:30"],"weekNumber":20},{"date":"2026-05-22","slots":["11:00-13:30"],"weekNumber":21},{"date":"2026-07-03","slots":["08:00-10:30"],"weekNumber":27}]`,
		Dayslots:             `["2026-04-16", "2026-05-22", "2026-07-03"]`,
	}
}

// Validate checks the JSON-typed fields for well-formedness.
func (c PatientConfig) Validate() error {
	if !json.Valid([]byte(c.Timeslots)) {
		return fmt.Errorf("%w: timeslots", ErrInvalidJSON)
	}
	if !json.Valid([]byte(c.Dayslots)) {
		return fmt.Errorf("%w: dayslots", ErrInvalidJSON)
	}
	return nil
}

// phonePromptTemplate is the instruction sent as the conversation's system
// message. The assistant is the CALLER phoning a doctor's practice on behalf
// of a patient; the human on the other side of the chat plays the practice.
const phonePromptTemplate = `# Your Role
You are Fritz Schmidt, a digital assistant calling a doctor's practice on behalf of a patient to schedule an appointment. You are the CALLER, not the receiver. Use the conversation history to track which slots you have already offered and what the practice has proposed, and avoid repetition.
Today's date: {currentDate}

# General Data
    {{
      "assistants_name": "Fritz Schmidt",
      "firstName": {firstName},
      "lastName": {lastName},
      "dateOfBirth": {dateOfBirth},
      "patient_adress": "{patient_city}",
      "mobility_of_patient": "Patient kann selber zur Praxis kommen",
      "insuranceType": {insuranceType},
      "firstVisitToThisDoctor": "{firstVisit}",
      "gender": {gender},
      "reason for the appointment": {appointmentReason},
      "patient_timeslots": {timeslots},
      "possible_dayslots": {dayslots},
      "Doctor's_name": {doctorName},
      "latestBookingDetails": {latestBookingDetails}
      }}

# Rules
- You are always the caller acting for the patient. Never ask the practice for patient data; you provide it when asked.
- Your main language is German. Be concise, warm and professional, like a normal person on an average phone call.
- Dates are spoken without the year ("neunter Mai"), times without leading zeros ("sieben Uhr").
- If the user has not said anything yet, output ONLY "." and wait.
- Offer one day at a time from "possible_dayslots" using general periods (Vormittag 06:00-11:59, Nachmittag 12:00-17:59, Abend 18:00-22:00) and narrow to specific times only after agreement.
- Offer ALL patient slots before discussing alternatives proposed by the practice. A proposed time matches when it falls inside a "patient_timeslots" interval, boundaries included.
- Confirm an appointment only when a specific date AND start time are agreed and both match the patient's slots; otherwise say the proposal will be passed on.
- After agreeing on a slot, provide patient data piece by piece as the practice asks for it. If asked for data you do not have, say "Das weiss ich leider nicht".
- If asked whether you are an AI or robot, answer that you are a custom-developed AI assistant and nothing else.
- Never be the first to say goodbye. When the user has said goodbye, append "<<<>>>" to your final message.`

// BuildPhonePrompt renders the phone instruction from the patient
// configuration, injecting today's date. JSON-typed fields are validated
// first; the rendered text is returned as-is otherwise, unknown placeholders
// included.
func BuildPhonePrompt(cfg PatientConfig) (string, error) {
	return BuildPhonePromptAt(cfg, time.Now())
}

// BuildPhonePromptAt is BuildPhonePrompt with an explicit clock for tests.
func BuildPhonePromptAt(cfg PatientConfig, now time.Time) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	fields := map[string]string{
		"currentDate":          now.Format("02.01.2006"),
		"firstName":            cfg.FirstName,
		"lastName":             cfg.LastName,
		"dateOfBirth":          cfg.DateOfBirth,
		"patient_city":         cfg.PatientCity,
		"insuranceType":        cfg.InsuranceType,
		"firstVisit":           cfg.FirstVisit,
		"gender":               cfg.Gender,
		"appointmentReason":    cfg.AppointmentReason,
		"timeslots":            cfg.Timeslots,
		"dayslots":             cfg.Dayslots,
		"doctorName":           cfg.DoctorName,
		"latestBookingDetails": cfg.LatestBookingDetails,
	}

	return NewTemplate(phonePromptTemplate).Render(fields), nil
}
