package events

import (
	"strings"

	"github.com/osintscope/eventsearch/internal/entities"
	"github.com/osintscope/eventsearch/internal/model"
)

// systemPrompt is the stable part of the extraction contract. It goes into
// the provider's system slot so backends with prompt caching can reuse it
// across articles.
const systemPrompt = `You are an expert event extraction AI. Extract event details ONLY from the provided article.
Be precise and conservative - only extract information that is clearly stated in the article.
Extract event type, location, date, participants, organizations, and provide a concise 3-4 sentence summary.
Return ONLY valid JSON matching the schema provided.`

const (
	promptHeadLen = 1500
	promptTailLen = 500
	promptHintCap = 8
)

// excerpt keeps the opening context and the closing paragraphs of long
// articles. Conclusions often carry the casualty tallies and attributions.
func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= promptHeadLen+promptTailLen {
		return content
	}
	return string(runes[:promptHeadLen]) + "\n...\n" + string(runes[len(runes)-promptTailLen:])
}

func buildPrompt(title, content string, bundle model.EntityBundle) string {
	var sb strings.Builder
	sb.WriteString("You are a military intelligence analyst extracting structured event data from news articles.\n\n")
	sb.WriteString("ARTICLE TITLE: ")
	sb.WriteString(title)
	sb.WriteString("\n\nARTICLE CONTENT:\n")
	sb.WriteString(excerpt(content))
	sb.WriteString("\n\n")

	hints := entities.Top(bundle, promptHintCap)
	if len(hints.Persons) > 0 || len(hints.Organizations) > 0 || len(hints.Locations) > 0 {
		sb.WriteString("DETECTED ENTITIES:\n")
		if len(hints.Persons) > 0 {
			sb.WriteString("- People: ")
			sb.WriteString(strings.Join(hints.Persons, ", "))
			sb.WriteString("\n")
		}
		if len(hints.Organizations) > 0 {
			sb.WriteString("- Organizations: ")
			sb.WriteString(strings.Join(hints.Organizations, ", "))
			sb.WriteString("\n")
		}
		if len(hints.Locations) > 0 {
			sb.WriteString("- Locations: ")
			sb.WriteString(strings.Join(hints.Locations, ", "))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`EXTRACTION TASK:
Read the article carefully and extract ONLY information that is explicitly stated. Do NOT make up or assume information.

STEP 1: Determine the MAIN event type from this article
STEP 2: Extract ONLY facts that are clearly stated in the article
STEP 3: Use null for ANY field where information is not explicitly mentioned
STEP 4: Write a concise summary (3-4 sentences maximum, capturing the key points)

EVENT TYPES (choose the ONE that best matches THIS article):
- meeting, summit, conference: Diplomatic meetings, trade talks, official visits, state visits
- political_event, election: Political activities, campaigns, government actions
- bombing, explosion, shooting, attack: Violent incidents (ONLY if this article is about such an incident)
- terrorist_activity: Terror-related acts
- protest, demonstration, civil_unrest: Public protests or unrest
- natural_disaster, accident: Natural catastrophes or accidents
- cyber_attack, data_breach: Cyber security incidents
- kidnapping, theft: Crimes
- military_operation: Military actions
- other: If none of the above fit

CRITICAL RULES - READ CAREFULLY:
1. ONLY extract event_type that matches THIS article's main topic
2. Extract perpetrator/casualties if mentioned OR claimed in THIS article (including claims by groups)
3. Do NOT mix information from different articles or examples
4. If a field is not mentioned in the article, use null
5. Summary must be 3-4 sentences maximum, concise and factual
6. Perpetrator is for violent events where someone carried out or claimed an attack
7. Casualties: Extract if deaths/injuries are mentioned, claimed, or reported in THIS article
8. Location should be where THIS event takes place
9. Date should be when THIS event happened (not the article date)
10. If event doesn't clearly fit a category, use "other"
11. Individuals: List ONLY actual person names (e.g., "Narendra Modi", "Vladimir Putin") - exclude place names, abbreviations, or non-person entities

PERPETRATOR TYPES (ONLY if this is a violent attack with identified perpetrator):
- terrorist_group, state_actor, criminal_organization, individual, multiple_parties, unknown, not_applicable

INDIVIDUALS FIELD INSTRUCTIONS:
- Include ONLY actual human names (first name + last name or full names)
- EXCLUDE: Place names, abbreviations, organization names, medical terms
- EXCLUDE: Single-word names without context
- Include: Political leaders, officials, victims with full names, witnesses with full names

EXAMPLE - Meeting/Summit Article:
{
    "event_type": "meeting",
    "event_sub_type": "bilateral summit",
    "summary": "Russian President Putin visited India for the 23rd Russia-India Summit. He held talks with PM Modi focusing on economic cooperation and energy ties. The two leaders agreed to boost bilateral trade to $100 billion by 2030.",
    "perpetrator": null,
    "perpetrator_type": null,
    "location": {
        "city": "New Delhi",
        "region": null,
        "country": "India"
    },
    "event_date": "2025-12-05",
    "event_time": null,
    "individuals": ["Vladimir Putin", "Narendra Modi"],
    "organizations": ["Kremlin", "Indian Government"],
    "casualties": null,
    "confidence": 0.9
}

EXAMPLE - Attack Article:
{
    "event_type": "bombing",
    "event_sub_type": "suicide bombing",
    "summary": "A suicide bomber attacked a checkpoint in Kabul. The Islamic State claimed responsibility for the attack, claiming to have killed 20 people and injured 30. Taliban authorities disputed the casualty figures.",
    "perpetrator": "Islamic State",
    "perpetrator_type": "terrorist_group",
    "location": {
        "city": "Kabul",
        "region": null,
        "country": "Afghanistan"
    },
    "event_date": "2023-01-01",
    "event_time": null,
    "individuals": [],
    "organizations": ["Islamic State", "Taliban"],
    "casualties": {
        "killed": 20,
        "injured": 30
    },
    "confidence": 0.85
}

JSON FORMATTING RULES:
- Output ONLY valid JSON - no explanations before or after
- Use null for missing/unavailable information
- All strings in double quotes
- Numbers without quotes
- event_date format: YYYY-MM-DD (null if not mentioned)
- confidence: 0.9+ very clear, 0.7-0.9 mostly clear, 0.5-0.7 uncertain, <0.5 very uncertain

JSON OUTPUT (extract from THIS article):`)
	return sb.String()
}
