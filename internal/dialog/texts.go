package dialog

// UI texts in English
const (
	welcomeText = "👋 Welcome to Coffee Duty Bot!\n\n" +
		"Enter your name (everyone will see it when you are on duty):"
	badNameText   = "❌ The name must be 1 to 50 characters long. Please try again:"
	pollTextFmt   = "✅ Hi, %s!\n\nHow often do you drink coffee in the office?"
	pollAgainText = "How often do you drink coffee in the office?"
	deletedText   = "🗑️ Your data has been deleted.\n\nIf you change your mind, press /start"

	dailyWelcomeText = "✅ Great! You are now a daily coffee drinker ☕\n\n" +
		"You will get duty announcements, and a duty holder is picked every working day at %s.\n\n" +
		"Use the buttons below to change your status:"
	occasionalWelcomeText = "✅ You are now an occasional coffee drinker ⏰\n\n" +
		"When you come to the office, check in with the button below. " +
		"Each check-in earns a coffee point, and the more points you have the sooner you are on duty.\n\n" +
		"Use the buttons below:"

	awayText         = "⏸️ You are marked as temporarily away.\n\nYou will not get duty announcements. Press \"I'm back!\" when you return."
	returnedText     = "🎉 Welcome back!\n\nYou will get duty announcements again."
	sadText          = "😔 What a pity..."
	reassignedText   = "✅ Your refusal is noted.\n\nA new duty holder has been picked and everyone has been notified."
	noReplacementTxt = "✅ Your refusal is noted.\n\nNobody else can take the duty today."
	checkedInTextFmt = "✅ Thanks for checking in!\n\nYou now have %d coffee points. The more points, the sooner you are on duty!"

	cancelText      = "❌ Cancelled.\n\nUse /start to begin again."
	notFoundText    = "❌ User not found. Press /start"
	expiredText     = "⌛ This menu is no longer active. Press /start to continue."
	notRegisteredTx = "❌ You are not registered. Use /start"
	initErrorText   = "Profile initialization error. Please try again later."
	storeErrorText  = "⚠️ Something went wrong while saving. Please try again later."

	rotationOnText  = "▶️ Duty rotation enabled."
	rotationOffText = "⏸ Duty rotation disabled. Scheduled batches will be skipped."

	statusFmt = "📊 Your status:\n" +
		"👤 Name: %s\n" +
		"📅 Mode: %s\n" +
		"☕ Coffee points: %d\n" +
		"🎖️ On duty: %s\n" +
		"⏸️ Temporarily away: %s\n" +
		"😔 Declined duty: %s\n\n" +
		"👑 Today's duty holder: %s\n\n" +
		"Updated: %s"
	noHolderText = "Not picked yet"

	helpFmt = "🤖 Coffee Duty Bot help\n\n" +
		"Commands:\n" +
		"/start - start working with the bot\n" +
		"/status - show your status\n" +
		"/help - this help\n" +
		"/cancel - cancel the current action\n\n" +
		"How it works:\n" +
		"1. Every working day at %s (%s):\n" +
		"   • daily coffee drinkers get a coffee point\n" +
		"   • the duty holder for today is picked\n" +
		"   • everyone gets an announcement\n" +
		"2. Every working day at %s (%s):\n" +
		"   • duty refusals are reset\n" +
		"   • the duty is settled\n" +
		"   • occasional coffee drinkers are marked as away\n\n" +
		"Working days: %s."
)

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
