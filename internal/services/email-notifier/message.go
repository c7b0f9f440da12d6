package notifier

const verificationSubject = "Verify your email"

func VerificationEmail(link string) (subject, body string) {
	return verificationSubject, "Click on the link below to verify your email:\n\n" + link
}
