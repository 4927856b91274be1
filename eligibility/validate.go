package eligibility

// ValidateFacts checks facts before any rule runs. It reports every problem
// at once rather than stopping at the first.
func ValidateFacts(facts RequestFacts, today Date) error {
	errs := &InputError{}

	switch {
	case facts.ReceivedDate.IsZero():
		errs.Add("received_date", "is required")
	case facts.ReceivedDate.After(today):
		errs.Add("received_date", "cannot be in the future")
	}

	switch {
	case facts.PurchaseChannel == "":
		errs.Add("purchase_channel", "is required")
	case !facts.PurchaseChannel.Valid():
		errs.Add("purchase_channel", "must be one of: online, in_person")
	}

	switch {
	case facts.Motive == "":
		errs.Add("motive", "is required")
	case !facts.Motive.Valid():
		errs.Add("motive", "must be one of: exchange, return, defect")
	}

	return errs.OrNil()
}
