// internal/notifier/templates.go
package notifier

import (
	"fmt"
	"time"
)

// Rendered subjects and bodies bound to member/book/loan fields. The
// wording follows the library's member-facing language.

const dateLayout = "02.01.2006."

func renderDueTomorrow(memberName, bookTitle, libraryName string, due time.Time) (string, string) {
	subject := fmt.Sprintf("Podsetnik: knjiga %q se vraća sutra", bookTitle)
	body := fmt.Sprintf(
		"Poštovani/a %s,\n\n"+
			"Podsetnik da knjiga %q treba da se vrati sutra (%s).\n\n"+
			"Molimo vas da knjigu vratite na vreme.\n\n"+
			"Srdačan pozdrav,\n%s",
		memberName, bookTitle, due.Format(dateLayout), libraryName)
	return subject, body
}

func renderDueToday(memberName, bookTitle, libraryName string, due time.Time) (string, string) {
	subject := fmt.Sprintf("Danas je rok za vraćanje knjige %q", bookTitle)
	body := fmt.Sprintf(
		"Poštovani/a %s,\n\n"+
			"Danas (%s) ističe rok za vraćanje knjige %q.\n\n"+
			"Molimo vas da knjigu vratite danas.\n\n"+
			"Srdačan pozdrav,\n%s",
		memberName, due.Format(dateLayout), bookTitle, libraryName)
	return subject, body
}

func renderOverdue(memberName, bookTitle, libraryName string, due time.Time, daysLate int) (string, string) {
	subject := fmt.Sprintf("Knjiga %q kasni %d dana", bookTitle, daysLate)
	body := fmt.Sprintf(
		"Poštovani/a %s,\n\n"+
			"Knjiga %q je trebalo da bude vraćena %s.\n"+
			"Kasni već %d dana.\n\n"+
			"Molimo vas da knjigu vratite što pre.\n\n"+
			"Srdačan pozdrav,\n%s",
		memberName, bookTitle, due.Format(dateLayout), daysLate, libraryName)
	return subject, body
}

func renderReservationAvailable(memberName, bookTitle, libraryName string, expires *time.Time) (string, string) {
	expiresStr := ""
	if expires != nil {
		expiresStr = fmt.Sprintf("\nKnjigu možete preuzeti do %s.", expires.Format(dateLayout))
	}
	subject := fmt.Sprintf("Vaša rezervacija je dostupna: %q", bookTitle)
	body := fmt.Sprintf(
		"Poštovani/a %s,\n\n"+
			"Knjiga %q koju ste rezervisali je sada dostupna za preuzimanje.%s\n\n"+
			"Srdačan pozdrav,\n%s",
		memberName, bookTitle, expiresStr, libraryName)
	return subject, body
}

func renderMembershipExpiring(memberName, libraryName string, validUntil time.Time) (string, string) {
	subject := "Članarina ističe za 30 dana"
	body := fmt.Sprintf(
		"Poštovani/a %s,\n\n"+
			"Vaša članarina u biblioteci ističe %s.\n\n"+
			"Molimo vas da obnovite članarinu na vreme.\n\n"+
			"Srdačan pozdrav,\n%s",
		memberName, validUntil.Format(dateLayout), libraryName)
	return subject, body
}

func renderMembershipExpired(memberName, libraryName string, today time.Time) (string, string) {
	subject := "Vaša članarina je istekla"
	body := fmt.Sprintf(
		"Poštovani/a %s,\n\n"+
			"Vaša članarina u biblioteci je istekla danas (%s).\n\n"+
			"Molimo vas da obnovite članarinu kako biste nastavili da koristite usluge biblioteke.\n\n"+
			"Srdačan pozdrav,\n%s",
		memberName, today.Format(dateLayout), libraryName)
	return subject, body
}
