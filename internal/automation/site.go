package automation

import (
	"fmt"
	"strings"
)

// FilterGroup describes one filter panel on the results page.
type FilterGroup struct {
	Name      string
	Button    Selector
	Panel     Selector
	Reset     Selector
	Apply     Selector
	InputType string
}

// Option returns the selector of the input carrying value inside the panel.
func (g FilterGroup) Option(value string) Selector {
	return XPath(fmt.Sprintf("%s//input[@type='%s' and @value='%s']", g.Panel.Query, g.InputType, value))
}

// Site holds every selector and URL of the target job board.
type Site struct {
	ListingsURL string

	LoginButton       Selector
	LoggedInIndicator Selector
	EmailField        Selector
	PasswordField     Selector
	LoginSubmit       Selector
	LoginError        Selector
	PostLoginMarker   Selector

	SearchField      Selector
	ResultsContainer Selector

	Contracts FilterGroup
	Remote    FilterGroup
	Freshness FilterGroup

	JobLinks     Selector
	NextPage     Selector
	LinksPerPage int

	AlreadyApplied Selector
	JobBody        Selector
	JobTitle       Selector
	JobCompany     Selector
	MessageField   Selector
	ApplyButton    Selector
	ConfirmButton  Selector
}

const visiblePopup = "//div[contains(@class,'tippy-box') and @data-state='visible']"

func popupGroup(name, inputType string) FilterGroup {
	return FilterGroup{
		Name:      name,
		Button:    CSS("#" + name),
		Panel:     XPath(visiblePopup),
		Reset:     XPath(visiblePopup + "//button[@type='reset' and contains(., 'Réinitialiser')]"),
		Apply:     XPath(visiblePopup + "//button[contains(., 'Appliquer')]"),
		InputType: inputType,
	}
}

// FreeWork returns the free-work.com site contract rooted at baseURL.
func FreeWork(baseURL string) Site {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.free-work.com"
	}

	return Site{
		ListingsURL: baseURL + "/fr/tech-it",

		LoginButton:       XPath("//a[contains(@class,'btn--light') and contains(., 'Connexion')]"),
		LoggedInIndicator: CSS(".user-profile-indicator"),
		EmailField:        CSS("#email"),
		PasswordField:     CSS("#password"),
		LoginSubmit:       XPath("//button[@type='submit' and contains(., 'Se connecter')]"),
		LoginError: XPath("//*[contains(text(),'incorrect') or contains(text(),'Identifiants') " +
			"or contains(text(),'erreur') or contains(text(),'invalide')]"),
		PostLoginMarker: CSS("#user-menu"),

		SearchField:      CSS("#query"),
		ResultsContainer: XPath("//h2[contains(@class,'font-semibold')]"),

		Contracts: popupGroup("contracts", "checkbox"),
		Remote:    popupGroup("remote", "checkbox"),
		Freshness: popupGroup("freshness", "radio"),

		JobLinks:     XPath("//h2[contains(@class,'font-semibold')]//a[contains(@href,'/fr/tech-it/')]"),
		NextPage:     XPath("//button[contains(., 'Suivant')]"),
		LinksPerPage: 16,

		AlreadyApplied: XPath("//h3[contains(text(),'Vous avez postulé')]"),
		JobBody:        CSS(".prose-content"),
		JobTitle:       XPath("//h1"),
		JobCompany:     XPath("//span[contains(@class,'company')]"),
		MessageField:   CSS("#job-application-message"),
		ApplyButton:    XPath("//button[contains(., 'Je postule')]"),
		ConfirmButton:  XPath("//button[contains(., 'Confirmer candidature')]"),
	}
}
