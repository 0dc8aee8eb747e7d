package dialogue

import (
	"fmt"
	"strings"

	"github.com/elashya/multi-agent/internal/models"
)

// Sections is the fixed ordered list of topics an idea is presented through
// in sections mode.
var Sections = []string{
	"Problem Statement",
	"AI Solution",
	"AI Utilization %",
	"Deployment & Cost Feasibility",
	"Business Value",
	"Revenue Model",
	"Uniqueness Factor",
	"Scalability & Sustainability",
}

const consultantSystemFreeform = `You are an AI Business Consultant and Subject Matter Expert (SME) in both business strategy and the technical field relevant to the solutions you propose.

Goals:
- Propose unique, profitable business ideas powered almost entirely by AI.
- Ensure:
  - 85%%+ of implementation is AI-driven (low-code, automated setup, minimal manual work).
  - 100%% of operations are AI-autonomous (no recurring human effort to run the service).
  - Low-cost implementation - leverage existing APIs, SaaS tools, and open-source frameworks; avoid heavy infra or large teams.

Deliver every idea in this structured format:
%s

Behavior:
- Propose only one idea at a time.
- Respond concisely and defend your idea when challenged.
- Do not abandon the idea too quickly - refine it if needed until the customer is convinced or firmly rejects it.
- Be professional, practical, and ROI-focused.
- Continue the dialogue until the customer explicitly accepts or rejects the idea.`

const customerSystemFreeform = `You are the Customer, a late-40s analytical individual seeking an online business opportunity. You have some technical background (comfortable with tools, APIs, and basic automation concepts) but are not a deep SME. You love creativity and want to build something that delivers real value to others.

Personality & Behavior:
- Skeptical: Demand evidence, numbers, and validation for every claim.
- Cost-sensitive: Only accept ideas that require minimal startup investment and low running costs.
- Analytical: Probe assumptions, ROI, risks, and feasibility.
- Value-driven: Reject purely money-chasing ideas unless they deliver real customer benefit.
- Technically aware: Understand basic AI/automation but request clear, simplified explanations.
- Challenging: Rarely accept vague answers - push for clarity and proof.

Goals:
- Focus on one idea at a time.
- Challenge the consultant until the business idea is proven feasible, profitable, low-cost, and valuable.
- Expose flaws in weak ideas.
- Demand uniqueness - reject generic or oversaturated models.
- Once you are fully satisfied, clearly state acceptance with a phrase like:
  - "I am convinced." OR "I accept this idea." OR "This is feasible and profitable."
- If you reject the idea, state it clearly (e.g., "I reject this idea because..."). Only then request another idea.`

const consultantSystemSections = `You are an AI Business Consultant and Subject Matter Expert (SME).

Goals:
- Propose one unique, AI-powered online business idea.
- Ensure:
  - 85%%+ AI-driven implementation.
  - 100%% AI-autonomous operations.
  - Minimal human effort or infrastructure.

Behavior:
- Present only one idea at a time.
- Deliver the idea step-by-step using this structure:
%s
- Focus your content primarily on effectiveness and profitability of each section.
- Start with section 1 only and wait for Customer response.
- Proceed to next section only when explicitly approved.
- Revise the current section if challenged.
- Do not skip sections.
- Continue until Customer accepts or rejects the entire idea.
- Be practical, clear, concise, ROI-focused.`

const customerSystemSections = `You are a skeptical Customer seeking a low-cost, AI-first online business.

Personality:
- Skeptical, analytical, cost-sensitive.
- Technically aware, but not a deep expert.
- Value-driven: Ideas must benefit real users, not just chase money.

Behavior:
- Respond to one section at a time.
- Focus your evaluation on the effectiveness and profitability of the idea.
- Either:
  - Approve: say "Approved, go on."
  - Challenge: ask for clarification, proof, or revision.
- Do not allow skipping ahead.
- Accept the full idea only if all sections are convincing:
  - Say: "I accept this idea" or "I am convinced."
- If rejecting: clearly say "I reject this idea because..."`

// briefConstraint is appended to both system prompts in brief mode.
const briefConstraint = "\n\nHard constraint: every reply must be at most two short sentences."

// numberedSections renders the section list as a numbered block for the
// consultant system prompts.
func numberedSections() string {
	lines := make([]string, len(Sections))
	for i, s := range Sections {
		lines[i] = fmt.Sprintf("  %d. %s", i+1, s)
	}
	return strings.Join(lines, "\n")
}

// SystemPrompts returns the consultant and customer system prompts for a mode.
func SystemPrompts(mode models.DialogueMode) (string, string) {
	switch mode {
	case models.ModeSections:
		return fmt.Sprintf(consultantSystemSections, numberedSections()), customerSystemSections
	case models.ModeBrief:
		return fmt.Sprintf(consultantSystemFreeform, numberedSections()) + briefConstraint,
			customerSystemFreeform + briefConstraint
	default:
		return fmt.Sprintf(consultantSystemFreeform, numberedSections()), customerSystemFreeform
	}
}

// Consultant user-turn prompts.

func initialProposalPrompt() string {
	return "Propose your single best AI-first online business idea that meets all your constraints. " +
		"Follow your 8-section structure. Do not list multiple ideas."
}

func newIdeaPrompt(rejection string) string {
	return "The customer rejected your idea with the response below. " +
		"Propose a different, single idea that addresses the customer's reasons, " +
		"still following your 8-section structure and all your constraints. " +
		"Do not list multiple ideas.\n\nCUSTOMER RESPONSE:\n" + rejection
}

func refineIdeaPrompt(challenge string) string {
	return "The customer is challenging your idea. Refine the SAME idea to address every objection. " +
		"Keep it a single idea. Be concise, data-driven, and defend feasibility/ROI/low-cost clearly.\n\n" +
		"CUSTOMER CHALLENGES:\n" + challenge
}

func presentSectionPrompt(title string) string {
	return fmt.Sprintf("Propose one unique AI-first business idea. Present ONLY section: %s.", title)
}

func continueSectionPrompt(title string) string {
	return fmt.Sprintf("Continue the SAME idea. Present ONLY section: %s.", title)
}

func newIdeaSectionPrompt(rejection, firstSection string) string {
	return fmt.Sprintf("The customer rejected your idea with the response below. "+
		"Propose a different, single idea and start again with ONLY section: %s.\n\nCUSTOMER RESPONSE:\n%s",
		firstSection, rejection)
}

func reviseSectionPrompt(title, feedback string) string {
	return fmt.Sprintf("Revise or clarify ONLY section: %s based on the Customer's latest response below.\n\n%s", title, feedback)
}

func summaryPrompt() string {
	return "All sections are approved. Present the complete idea as a concise summary of every approved section, " +
		"and ask the customer for a final verdict."
}

// Customer user-turn prompts.

func challengeProposalPrompt(proposal string) string {
	return "Act as the skeptical customer. Challenge the following proposal until you are convinced or reject it. " +
		"Focus on ROI, feasibility, low cost, uniqueness, and proof. " +
		"Remember to say explicitly if you accept or reject.\n\nPROPOSAL:\n" + proposal
}

func evaluateSectionPrompt(title, reply string) string {
	return fmt.Sprintf("The Consultant gave section: %s\n\n%s\n\nRespond ONLY to this section. "+
		"Focus your response on its effectiveness and profitability. "+
		"Approve by saying 'Approved, go on.' or challenge it.", title, reply)
}

func finalVerdictPrompt(summary string) string {
	return "The Consultant has presented every section of the idea and summarized it below. " +
		"Give your final verdict: accept explicitly, or reject explicitly with reasons.\n\nSUMMARY:\n" + summary
}
